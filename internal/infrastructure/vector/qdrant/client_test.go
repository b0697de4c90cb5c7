package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

func TestSearchTranslatesRangeFilter(t *testing.T) {
	var capturedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/products/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&capturedBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.9,"payload":{"product_id":"p1","content":"白色衬衫","Product Price":89.0}},
			{"score":0.7,"payload":{"product_id":"p2","content":"蓝色衬衫","Product Price":99.0}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "products")
	query := domain.StructuredQuery{
		Search: "衬衫",
		Filters: []domain.FilterClause{
			{Attribute: domain.AttrPrice, Comparator: domain.CompLt, Value: 100.0},
		},
	}
	products, err := client.Search(context.Background(), query, []float32{0.1, 0.2}, 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(products) != 2 || products[0].ID != "p1" || products[1].ID != "p2" {
		t.Fatalf("unexpected products %+v", products)
	}
	if products[0].Price != 89.0 {
		t.Fatalf("price payload not decoded: %+v", products[0])
	}

	filter, ok := capturedBody["filter"].(map[string]any)
	if !ok {
		t.Fatalf("request missing filter: %v", capturedBody)
	}
	raw, _ := json.Marshal(filter)
	if !strings.Contains(string(raw), `"Product Price"`) || !strings.Contains(string(raw), `"lt":100`) {
		t.Fatalf("unexpected filter translation: %s", raw)
	}
}

func TestSearchOmitsFilterWhenAllClausesDrop(t *testing.T) {
	var capturedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&capturedBody)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, "products")
	query := domain.StructuredQuery{
		Search: "上衣",
		Filters: []domain.FilterClause{
			{Attribute: domain.AttrSizes, Comparator: domain.CompLike, Value: "M"},
			{Attribute: domain.AttrDetails, Comparator: domain.CompContain, Value: "纯棉"},
		},
	}
	if _, err := client.Search(context.Background(), query, []float32{0.3}, 3); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, present := capturedBody["filter"]; present {
		t.Fatalf("text-match clauses must not produce a filter: %v", capturedBody)
	}
}

func TestTranslateFilters(t *testing.T) {
	tests := []struct {
		name    string
		clauses []domain.FilterClause
		want    string
		wantNil bool
	}{
		{
			name: "eq becomes match",
			clauses: []domain.FilterClause{
				{Attribute: domain.AttrBrand, Comparator: domain.CompEq, Value: "Nike"},
			},
			want: `"match":{"value":"Nike"}`,
		},
		{
			name: "gte becomes range",
			clauses: []domain.FilterClause{
				{Attribute: domain.AttrPrice, Comparator: domain.CompGte, Value: "200"},
			},
			want: `"range":{"gte":200}`,
		},
		{
			name: "like dropped silently",
			clauses: []domain.FilterClause{
				{Attribute: domain.AttrSizes, Comparator: domain.CompLike, Value: "M"},
			},
			wantNil: true,
		},
		{
			name: "non-numeric range value dropped",
			clauses: []domain.FilterClause{
				{Attribute: domain.AttrPrice, Comparator: domain.CompLt, Value: "cheap"},
			},
			wantNil: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			filter := translateFilters(tc.clauses)
			if tc.wantNil {
				if filter != nil {
					t.Fatalf("expected nil filter, got %v", filter)
				}
				return
			}
			raw, _ := json.Marshal(filter)
			if !strings.Contains(string(raw), tc.want) {
				t.Fatalf("filter %s missing %s", raw, tc.want)
			}
		})
	}
}

func TestUpsertProductUsesStablePointID(t *testing.T) {
	var ids []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/points") {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		var body struct {
			Points []struct {
				ID string `json:"id"`
			} `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		for _, p := range body.Points {
			ids = append(ids, p.ID)
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := New(server.URL, "products")
	product := &domain.Product{ID: "p1", Content: "连衣裙"}
	for i := 0; i < 2; i++ {
		if err := client.UpsertProduct(context.Background(), product, []float32{0.1}); err != nil {
			t.Fatalf("UpsertProduct() error = %v", err)
		}
	}
	if len(ids) != 2 || ids[0] != ids[1] {
		t.Fatalf("expected identical point ids on re-index, got %v", ids)
	}
}

func TestSearchIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "products")
	_, err := client.Search(context.Background(), domain.StructuredQuery{}, []float32{0.1}, 3)
	if err == nil || !strings.Contains(err.Error(), "collection missing") {
		t.Fatalf("expected response body in error, got %v", err)
	}
}
