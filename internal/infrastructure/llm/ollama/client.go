package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
	"github.com/styleseek/fashion-recommender/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Classifier grades topical relevance with a fixed Yes/No taxonomy.
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

func (c *Classifier) Classify(ctx context.Context, query string) (domain.TopicVerdict, error) {
	respText, err := c.client.generateJSON(ctx, buildTopicPrompt(query))
	if err != nil {
		return domain.TopicVerdict{}, err
	}

	var result struct {
		Score string `json:"score"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.TopicVerdict{}, fmt.Errorf("parse topic json: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(result.Score)) {
	case "yes":
		return domain.TopicVerdict{OnTopic: true}, nil
	case "no":
		return domain.TopicVerdict{OnTopic: false}, nil
	default:
		return domain.TopicVerdict{}, fmt.Errorf("unparseable topic score: %q", result.Score)
	}
}

// ClassifyHeuristic is the degraded raw-text path: one plain generation
// call, graded by an affirmative-substring check.
func (c *Classifier) ClassifyHeuristic(ctx context.Context, query string) (bool, error) {
	respText, err := c.client.generateText(ctx, buildTopicHeuristicPrompt(query))
	if err != nil {
		return false, err
	}
	return isAffirmative(respText), nil
}

func isAffirmative(text string) bool {
	lowered := strings.ToLower(text)
	return strings.Contains(lowered, "yes") || strings.Contains(lowered, "是")
}

// QueryConstructor translates a natural-language query into a semantic
// search string plus structured filter clauses, guided by fixed few-shot
// exemplars. Clauses over unknown attributes or comparators are dropped
// rather than failing the parse.
type QueryConstructor struct {
	client *Client
}

func NewQueryConstructor(client *Client) *QueryConstructor {
	return &QueryConstructor{client: client}
}

func (qc *QueryConstructor) Construct(ctx context.Context, query string) (domain.StructuredQuery, error) {
	respText, err := qc.client.generateJSON(ctx, buildQueryConstructorPrompt(query))
	if err != nil {
		return domain.StructuredQuery{}, err
	}

	var raw struct {
		Search  string `json:"search"`
		Filters []struct {
			Attribute  string `json:"attribute"`
			Comparator string `json:"comparator"`
			Value      any    `json:"value"`
		} `json:"filters"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &raw); err != nil {
		return domain.StructuredQuery{}, fmt.Errorf("parse structured query json: %w", err)
	}

	out := domain.StructuredQuery{Search: strings.TrimSpace(raw.Search)}
	for _, f := range raw.Filters {
		comparator, ok := normalizeComparator(f.Comparator)
		if !ok {
			continue
		}
		if !knownAttribute(f.Attribute) {
			continue
		}
		out.Filters = append(out.Filters, domain.FilterClause{
			Attribute:  f.Attribute,
			Comparator: comparator,
			Value:      f.Value,
		})
	}
	return out, nil
}

func normalizeComparator(raw string) (domain.Comparator, bool) {
	switch domain.Comparator(strings.ToLower(strings.TrimSpace(raw))) {
	case domain.CompEq:
		return domain.CompEq, true
	case domain.CompLt:
		return domain.CompLt, true
	case domain.CompLte:
		return domain.CompLte, true
	case domain.CompGt:
		return domain.CompGt, true
	case domain.CompGte:
		return domain.CompGte, true
	case domain.CompLike:
		return domain.CompLike, true
	case domain.CompContain:
		return domain.CompContain, true
	default:
		return "", false
	}
}

func knownAttribute(attr string) bool {
	switch attr {
	case domain.AttrDetails, domain.AttrBrand, domain.AttrSizes, domain.AttrPrice:
		return true
	default:
		return false
	}
}

// Embedder builds vectors via /api/embed.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Generator produces the final recommendation text. Responses are cached
// process-wide, keyed by the rendered prompt.
type Generator struct {
	client *Client
	cache  *lru.Cache[string, string]
}

func NewGenerator(client *Client, cacheSize int) (*Generator, error) {
	if cacheSize <= 0 {
		cacheSize = 512
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("init generation cache: %w", err)
	}
	return &Generator{client: client, cache: cache}, nil
}

func (g *Generator) GenerateRecommendation(ctx context.Context, query string, products []domain.Product) (string, error) {
	return g.generateCached(ctx, buildRecommendationPrompt(query, products))
}

func (g *Generator) GenerateSmallTalk(ctx context.Context, query string) (string, error) {
	return g.generateCached(ctx, buildSmallTalkPrompt(query))
}

func (g *Generator) generateCached(ctx context.Context, prompt string) (string, error) {
	if cached, ok := g.cache.Get(prompt); ok {
		return cached, nil
	}
	text, err := g.client.generateText(ctx, prompt)
	if err != nil {
		return "", err
	}
	g.cache.Add(prompt, text)
	return text, nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
