package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

const lexicalVectorName = "lexical"

// LexicalClient maintains a sparse keyword index over the full catalog.
// It is the fallback candidate source when the filtered dense search
// leaves the result set short.
type LexicalClient struct {
	baseURL    string
	collection string
	httpClient *http.Client

	ensureMu          sync.Mutex
	ensuredCollection bool
}

func NewLexicalClient(baseURL, collection string) *LexicalClient {
	return &LexicalClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *LexicalClient) UpsertProduct(ctx context.Context, p *domain.Product) error {
	if p == nil {
		return nil
	}
	sparse := encodeSparseDocument(p.Content, p.Brand)
	if len(sparse.Indices) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"points": []map[string]any{
			{
				"id": pointID(p.ID),
				"vector": map[string]any{
					lexicalVectorName: sparse,
				},
				"payload": productPayload(p),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal lexical upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create lexical upsert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lexical upsert request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("lexical upsert status: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// Rerank scores the whole catalog against the raw query text and
// returns the best keyword matches, similarity descending.
func (c *LexicalClient) Rerank(ctx context.Context, query string, limit int) ([]domain.Product, error) {
	sparse := encodeSparseQuery(query)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	body, err := json.Marshal(map[string]any{
		"query":        sparse,
		"using":        lexicalVectorName,
		"limit":        limit,
		"with_payload": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal lexical query body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/query", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create lexical query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lexical query request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("lexical query status: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var queryResp struct {
		Result struct {
			Points []scoredPoint `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return nil, fmt.Errorf("decode lexical query response: %w", err)
	}

	out := make([]domain.Product, 0, len(queryResp.Result.Points))
	for _, point := range queryResp.Result.Points {
		out = append(out, payloadToProduct(point.Payload, point.Score))
	}
	return out, nil
}

func (c *LexicalClient) ensureCollection(ctx context.Context) error {
	c.ensureMu.Lock()
	if c.ensuredCollection {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"sparse_vectors": map[string]any{
			lexicalVectorName: map[string]any{},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal lexical ensure collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create lexical ensure collection request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("lexical ensure collection request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("lexical ensure collection status: %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensureMu.Unlock()
	return nil
}
