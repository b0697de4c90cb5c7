package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

func TestRerankQueriesSparseIndex(t *testing.T) {
	var capturedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/products_lexical/points/query" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&capturedBody)
		_, _ = w.Write([]byte(`{"result":{"points":[
			{"score":2.1,"payload":{"product_id":"p9","content":"运动夹克"}},
			{"score":1.4,"payload":{"product_id":"p3","content":"休闲夹克"}}
		]}}`))
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, "products_lexical")
	products, err := client.Rerank(context.Background(), "推荐一件夹克", 10)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if len(products) != 2 || products[0].ID != "p9" || products[1].ID != "p3" {
		t.Fatalf("unexpected rerank order %+v", products)
	}

	if using, _ := capturedBody["using"].(string); using != lexicalVectorName {
		t.Fatalf("expected sparse vector name, got %v", capturedBody["using"])
	}
	query, ok := capturedBody["query"].(map[string]any)
	if !ok || len(query["indices"].([]any)) == 0 {
		t.Fatalf("expected sparse query in request, got %v", capturedBody["query"])
	}
}

func TestRerankSkipsUnencodableQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected for empty sparse query")
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, "products_lexical")
	products, err := client.Rerank(context.Background(), "!!! ???", 10)
	if err != nil {
		t.Fatalf("Rerank() error = %v", err)
	}
	if products != nil {
		t.Fatalf("expected no candidates, got %+v", products)
	}
}

func TestUpsertProductWritesNamedSparseVector(t *testing.T) {
	var sawEnsure, sawUpsert bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/products_lexical":
			sawEnsure = true
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body["sparse_vectors"]; !ok {
				t.Fatalf("ensure collection missing sparse_vectors config: %v", body)
			}
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodPut && r.URL.Path == "/collections/products_lexical/points":
			sawUpsert = true
			var body struct {
				Points []struct {
					Vector map[string]sparseVector `json:"vector"`
				} `json:"points"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.Points) != 1 {
				t.Fatalf("expected single point, got %d", len(body.Points))
			}
			sparse, ok := body.Points[0].Vector[lexicalVectorName]
			if !ok || len(sparse.Indices) == 0 || len(sparse.Indices) != len(sparse.Values) {
				t.Fatalf("malformed sparse vector %+v", body.Points[0].Vector)
			}
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewLexicalClient(server.URL, "products_lexical")
	err := client.UpsertProduct(context.Background(), &domain.Product{ID: "p1", Content: "白色运动上衣", Brand: "Nike"})
	if err != nil {
		t.Fatalf("UpsertProduct() error = %v", err)
	}
	if !sawEnsure || !sawUpsert {
		t.Fatalf("expected ensure+upsert, got ensure=%v upsert=%v", sawEnsure, sawUpsert)
	}
}
