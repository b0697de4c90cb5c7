package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/styleseek/fashion-recommender/internal/config"
	"github.com/styleseek/fashion-recommender/internal/core/domain"
)

type classifierFake struct {
	onTopic       bool
	err           error
	heuristic     bool
	heuristicErr  error
	calls         int
	heuristicCall int
}

func (f *classifierFake) Classify(context.Context, string) (domain.TopicVerdict, error) {
	f.calls++
	if f.err != nil {
		return domain.TopicVerdict{}, f.err
	}
	return domain.TopicVerdict{OnTopic: f.onTopic}, nil
}

func (f *classifierFake) ClassifyHeuristic(context.Context, string) (bool, error) {
	f.heuristicCall++
	if f.heuristicErr != nil {
		return false, f.heuristicErr
	}
	return f.heuristic, nil
}

type constructorFake struct {
	structured domain.StructuredQuery
	err        error
	calls      int
}

func (f *constructorFake) Construct(context.Context, string) (domain.StructuredQuery, error) {
	f.calls++
	if f.err != nil {
		return domain.StructuredQuery{}, f.err
	}
	return f.structured, nil
}

type embedderFake struct {
	err error
}

func (f *embedderFake) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (f *embedderFake) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type searcherFake struct {
	docs  []domain.Product
	err   error
	calls int
	limit int
}

func (f *searcherFake) Search(_ context.Context, _ domain.StructuredQuery, _ []float32, limit int) ([]domain.Product, error) {
	f.calls++
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type rerankerFake struct {
	docs  []domain.Product
	err   error
	calls int
}

func (f *rerankerFake) Rerank(context.Context, string, int) ([]domain.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type generatorFake struct {
	answer       string
	err          error
	smallTalk    string
	smallTalkErr error
	genCalls     int
	talkCalls    int
	seenDocs     []domain.Product
}

func (f *generatorFake) GenerateRecommendation(_ context.Context, _ string, docs []domain.Product) (string, error) {
	f.genCalls++
	f.seenDocs = docs
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *generatorFake) GenerateSmallTalk(context.Context, string) (string, error) {
	f.talkCalls++
	if f.smallTalkErr != nil {
		return "", f.smallTalkErr
	}
	return f.smallTalk, nil
}

type pipelineFixture struct {
	classifier  *classifierFake
	constructor *constructorFake
	embedder    *embedderFake
	searcher    *searcherFake
	reranker    *rerankerFake
	generator   *generatorFake
	uc          *RecommendUseCase
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	cfg, err := config.LoadCategories("")
	if err != nil {
		t.Fatalf("LoadCategories() error = %v", err)
	}

	fx := &pipelineFixture{
		classifier:  &classifierFake{onTopic: true},
		constructor: &constructorFake{structured: domain.StructuredQuery{Search: "连衣裙"}},
		embedder:    &embedderFake{},
		searcher:    &searcherFake{},
		reranker:    &rerankerFake{},
		generator:   &generatorFake{answer: "try these", smallTalk: "let's talk fashion"},
	}
	fx.uc = NewRecommendUseCase(
		fx.classifier,
		fx.constructor,
		fx.embedder,
		fx.searcher,
		fx.reranker,
		fx.generator,
		NewCategoryFilter(cfg),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		3, 3, 10,
	)
	return fx
}

func dressDocs(ids ...string) []domain.Product {
	docs := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, domain.Product{ID: id, Details: "夏季连衣裙 无袖"})
	}
	return docs
}

func TestRecommendEmptyQueryRejected(t *testing.T) {
	fx := newPipelineFixture(t)
	_, err := fx.uc.Recommend(context.Background(), "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestRecommendOffTopicSkipsRetrieval(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.classifier.onTopic = false

	rec, err := fx.uc.Recommend(context.Background(), "如何重置密码")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(rec.ProductIDs) != 0 {
		t.Fatalf("off-topic reply must carry no product ids, got %v", rec.ProductIDs)
	}
	if rec.Answer != "let's talk fashion" {
		t.Fatalf("expected small talk answer, got %q", rec.Answer)
	}
	if fx.constructor.calls != 0 || fx.searcher.calls != 0 || fx.reranker.calls != 0 {
		t.Fatalf("retrieval must not run for off-topic queries")
	}
}

func TestRecommendOffTopicSmallTalkFailureUsesFixedMessage(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.classifier.onTopic = false
	fx.generator.smallTalkErr = errors.New("llm down")

	rec, err := fx.uc.Recommend(context.Background(), "如何重置密码")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.Answer != domain.ScopeReminderMessage(domain.LangChinese) {
		t.Fatalf("expected fixed scope reminder, got %q", rec.Answer)
	}
	if len(rec.ProductIDs) != 0 {
		t.Fatalf("expected empty product ids")
	}
}

func TestRecommendClassifierDegradesToHeuristic(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.classifier.err = errors.New("structured output broken")
	fx.classifier.heuristic = true
	fx.searcher.docs = dressDocs("p1", "p2", "p3")

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if fx.classifier.heuristicCall != 1 {
		t.Fatalf("expected heuristic fallback call")
	}
	if !rec.OnTopic || len(rec.ProductIDs) != 3 {
		t.Fatalf("expected heuristic verdict to drive retrieval, got %+v", rec)
	}
}

func TestRecommendClassifierFailsClosed(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.classifier.err = errors.New("structured output broken")
	fx.classifier.heuristicErr = errors.New("raw call broken")

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.OnTopic {
		t.Fatalf("expected fail-closed off-topic verdict")
	}
	if fx.searcher.calls != 0 {
		t.Fatalf("retrieval must not run when classification fails closed")
	}
}

func TestRecommendHappyPathNoFallback(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.searcher.docs = dressDocs("p1", "p2", "p3")

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.Answer != "try these" {
		t.Fatalf("expected generated answer, got %q", rec.Answer)
	}
	if len(rec.ProductIDs) != 3 {
		t.Fatalf("expected 3 product ids, got %v", rec.ProductIDs)
	}
	if rec.FallbackUsed || fx.reranker.calls != 0 {
		t.Fatalf("fallback must not run with sufficient results")
	}
	if fx.searcher.limit != 3 {
		t.Fatalf("expected top-k 3, got %d", fx.searcher.limit)
	}
}

func TestRecommendFallbackTopsUpAndPreservesOrder(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.searcher.docs = dressDocs("p1")
	fx.reranker.docs = dressDocs("r1", "r2", "r3", "r4")

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if fx.reranker.calls != 1 {
		t.Fatalf("expected exactly one fallback call, got %d", fx.reranker.calls)
	}
	want := []string{"p1", "r1", "r2"}
	if len(rec.ProductIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, rec.ProductIDs)
	}
	for i := range want {
		if rec.ProductIDs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, rec.ProductIDs)
		}
	}
	if !rec.FallbackUsed {
		t.Fatalf("expected fallback flag set")
	}
}

func TestRecommendFallbackRunsAtMostOnce(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.searcher.docs = nil
	fx.reranker.docs = nil

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if fx.reranker.calls != 1 {
		t.Fatalf("expected exactly one fallback call, got %d", fx.reranker.calls)
	}
	if len(rec.ProductIDs) != 0 {
		t.Fatalf("expected no product ids")
	}
	if rec.Answer != domain.NoProductsMessage(domain.LangChinese) {
		t.Fatalf("expected fixed no-products message, got %q", rec.Answer)
	}
	if fx.generator.genCalls != 0 {
		t.Fatalf("generation must be skipped for empty candidate set")
	}
}

func TestRecommendFallbackMergeBoundNeverNegative(t *testing.T) {
	fx := newPipelineFixture(t)
	// Two survivors out of retrieval, fallback offers four more.
	fx.searcher.docs = dressDocs("p1", "p2")
	fx.reranker.docs = dressDocs("r1", "r2", "r3", "r4")

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(rec.ProductIDs) != 3 {
		t.Fatalf("expected merge bounded to target count, got %v", rec.ProductIDs)
	}
	if rec.ProductIDs[2] != "r1" {
		t.Fatalf("fallback docs must append after existing docs, got %v", rec.ProductIDs)
	}
}

func TestRecommendFallbackErrorStillMarksAttempt(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.searcher.docs = nil
	fx.reranker.err = errors.New("rerank index cold")

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !rec.FallbackUsed {
		t.Fatalf("fallback attempt must be recorded even on failure")
	}
	if fx.reranker.calls != 1 {
		t.Fatalf("expected single fallback call, got %d", fx.reranker.calls)
	}
}

func TestRecommendRetrievalFailureDegradesToFallback(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.constructor.err = errors.New("parse failed")
	fx.reranker.docs = dressDocs("r1", "r2", "r3")

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(rec.ProductIDs) != 3 {
		t.Fatalf("expected fallback to recover, got %v", rec.ProductIDs)
	}
	if !rec.FallbackUsed {
		t.Fatalf("expected fallback flag")
	}
}

func TestRecommendGenerationFailureYieldsApology(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.searcher.docs = dressDocs("p1", "p2", "p3")
	fx.generator.err = errors.New("model overloaded")

	rec, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙")
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !strings.Contains(rec.Answer, "model overloaded") {
		t.Fatalf("expected apology with error detail, got %q", rec.Answer)
	}
	if len(rec.ProductIDs) != 3 {
		t.Fatalf("expected product ids preserved, got %v", rec.ProductIDs)
	}
}

func TestRecommendGeneratorReceivesDocsInOrder(t *testing.T) {
	fx := newPipelineFixture(t)
	fx.searcher.docs = dressDocs("p2", "p1", "p3")

	if _, err := fx.uc.Recommend(context.Background(), "推荐一些夏季连衣裙"); err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	got := domain.ProductIDs(fx.generator.seenDocs)
	want := []string{"p2", "p1", "p3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("generator must receive retriever order, got %v", got)
		}
	}
}

func TestNextStageTransitions(t *testing.T) {
	cases := []struct {
		name   string
		stage  Stage
		tr     traversal
		target int
		want   Stage
	}{
		{"start always classifies", StageStart, traversal{}, 3, StageClassifying},
		{"on topic retrieves", StageClassifying, traversal{onTopic: true}, 3, StageRetrieving},
		{"off topic responds", StageClassifying, traversal{onTopic: false}, 3, StageOffTopicRespond},
		{"offtopic terminal", StageOffTopicRespond, traversal{}, 3, StageDone},
		{"retrieval always filters", StageRetrieving, traversal{}, 3, StageFiltering},
		{"short set ranks", StageFiltering, traversal{docs: dressDocs("p1")}, 3, StageRanking},
		{"full set generates", StageFiltering, traversal{docs: dressDocs("p1", "p2", "p3")}, 3, StageGenerating},
		{"fallback done generates even when short", StageFiltering, traversal{docs: nil, fallbackAttempted: true}, 3, StageGenerating},
		{"ranking loops back to filtering", StageRanking, traversal{}, 3, StageFiltering},
		{"generating terminal", StageGenerating, traversal{}, 3, StageDone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextStage(tc.stage, tc.tr, tc.target); got != tc.want {
				t.Fatalf("nextStage(%v) = %v, want %v", tc.stage, got, tc.want)
			}
		})
	}
}

func TestNextStageTerminatesFromEveryStage(t *testing.T) {
	for _, start := range []Stage{StageStart, StageClassifying, StageOffTopicRespond, StageRetrieving, StageFiltering, StageRanking, StageGenerating} {
		stage := start
		tr := traversal{}
		for i := 0; i < 16; i++ {
			if stage == StageDone {
				break
			}
			// Ranking marks the attempt exactly like the real stage does.
			if stage == StageRanking {
				tr.fallbackAttempted = true
			}
			stage = nextStage(stage, tr, 3)
		}
		if stage != StageDone {
			t.Fatalf("state machine did not terminate from %v", start)
		}
	}
}
