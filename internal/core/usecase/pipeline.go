package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/styleseek/fashion-recommender/internal/core/domain"
	"github.com/styleseek/fashion-recommender/internal/core/ports"
)

// Stage is one node of the recommendation state machine.
type Stage int

const (
	StageStart Stage = iota
	StageClassifying
	StageOffTopicRespond
	StageRetrieving
	StageFiltering
	StageRanking
	StageGenerating
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageClassifying:
		return "classifying"
	case StageOffTopicRespond:
		return "offtopic_respond"
	case StageRetrieving:
		return "retrieving"
	case StageFiltering:
		return "filtering"
	case StageRanking:
		return "ranking"
	case StageGenerating:
		return "generating"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// traversal is the request-local record threaded through the state
// machine. Stages receive a traversal and return an updated copy; nothing
// mutates a traversal another stage still holds.
type traversal struct {
	query string
	lang  domain.Language

	onTopic           bool
	classifyDegraded  bool
	docs              []domain.Product
	fallbackAttempted bool
	recommendation    string
}

// nextStage is the pure transition function. It guarantees one
// structured retrieval, at most one fallback pass, at most two filter
// applications and termination on every branch.
func nextStage(s Stage, tr traversal, targetCount int) Stage {
	switch s {
	case StageStart:
		return StageClassifying
	case StageClassifying:
		if tr.onTopic {
			return StageRetrieving
		}
		return StageOffTopicRespond
	case StageOffTopicRespond:
		return StageDone
	case StageRetrieving:
		return StageFiltering
	case StageFiltering:
		if len(tr.docs) < targetCount && !tr.fallbackAttempted {
			return StageRanking
		}
		return StageGenerating
	case StageRanking:
		return StageFiltering
	case StageGenerating:
		return StageDone
	default:
		return StageDone
	}
}

// RecommendUseCase sequences classification, structured retrieval,
// category filtering, the single fallback pass and generation for one
// query. Every collaborator failure degrades to a benign default, so
// Recommend itself only fails on invalid input.
type RecommendUseCase struct {
	classifier  ports.TopicClassifier
	constructor ports.QueryConstructor
	embedder    ports.Embedder
	searcher    ports.ProductSearcher
	reranker    ports.Reranker
	generator   ports.RecommendationGenerator
	filter      *CategoryFilter
	logger      *slog.Logger

	targetCount int
	topK        int
	rerankTopK  int
}

func NewRecommendUseCase(
	classifier ports.TopicClassifier,
	constructor ports.QueryConstructor,
	embedder ports.Embedder,
	searcher ports.ProductSearcher,
	reranker ports.Reranker,
	generator ports.RecommendationGenerator,
	filter *CategoryFilter,
	logger *slog.Logger,
	targetCount, topK, rerankTopK int,
) *RecommendUseCase {
	if targetCount <= 0 {
		targetCount = 3
	}
	if topK <= 0 {
		topK = targetCount
	}
	if rerankTopK <= 0 {
		rerankTopK = 10
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecommendUseCase{
		classifier:  classifier,
		constructor: constructor,
		embedder:    embedder,
		searcher:    searcher,
		reranker:    reranker,
		generator:   generator,
		filter:      filter,
		logger:      logger,
		targetCount: targetCount,
		topK:        topK,
		rerankTopK:  rerankTopK,
	}
}

func (uc *RecommendUseCase) Recommend(ctx context.Context, query string) (*domain.Recommendation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recommend", fmt.Errorf("query is empty"))
	}

	tr := traversal{
		query: query,
		lang:  domain.DetectLanguage(query),
	}

	for stage := nextStage(StageStart, tr, uc.targetCount); stage != StageDone; stage = nextStage(stage, tr, uc.targetCount) {
		switch stage {
		case StageClassifying:
			tr = uc.classifyStage(ctx, tr)
		case StageOffTopicRespond:
			tr = uc.offTopicStage(ctx, tr)
		case StageRetrieving:
			tr = uc.retrieveStage(ctx, tr)
		case StageFiltering:
			tr = uc.filterStage(tr)
		case StageRanking:
			tr = uc.rankStage(ctx, tr)
		case StageGenerating:
			tr = uc.generateStage(ctx, tr)
		}
	}

	return &domain.Recommendation{
		Answer:       tr.recommendation,
		ProductIDs:   domain.ProductIDs(tr.docs),
		OnTopic:      tr.onTopic,
		FallbackUsed: tr.fallbackAttempted,
	}, nil
}

// classifyStage grades topical relevance. Structured classification
// failure degrades to the heuristic raw-text check; if that fails too the
// query is treated as off-topic. Fails closed: a broken classifier never
// lets an unrelated query through to retrieval.
func (uc *RecommendUseCase) classifyStage(ctx context.Context, tr traversal) traversal {
	verdict, err := uc.classifier.Classify(ctx, tr.query)
	if err == nil {
		tr.onTopic = verdict.OnTopic
		tr.classifyDegraded = verdict.Degraded
		return tr
	}
	uc.logger.Warn("topic classification degraded to heuristic", "error", err)

	onTopic, herr := uc.classifier.ClassifyHeuristic(ctx, tr.query)
	if herr != nil {
		uc.logger.Warn("heuristic classification failed, defaulting off-topic", "error", herr)
		tr.onTopic = false
		tr.classifyDegraded = true
		return tr
	}
	tr.onTopic = onTopic
	tr.classifyDegraded = true
	return tr
}

// offTopicStage produces a conversational reply that reminds the user of
// the system's scope, never touching retrieval.
func (uc *RecommendUseCase) offTopicStage(ctx context.Context, tr traversal) traversal {
	reply, err := uc.generator.GenerateSmallTalk(ctx, tr.query)
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			uc.logger.Warn("small talk generation failed", "error", err)
		}
		tr.recommendation = domain.ScopeReminderMessage(tr.lang)
		return tr
	}
	tr.recommendation = reply
	return tr
}

// retrieveStage runs the structured retriever. Any parse, embed or
// search failure yields an empty candidate set; the fallback pass is the
// recovery path.
func (uc *RecommendUseCase) retrieveStage(ctx context.Context, tr traversal) traversal {
	structured, err := uc.constructor.Construct(ctx, tr.query)
	if err != nil {
		uc.logger.Warn("query construction failed, retrieval degrades to empty", "error", err)
		tr.docs = nil
		return tr
	}
	if structured.Search == "" {
		structured.Search = tr.query
	}

	vector, err := uc.embedder.EmbedQuery(ctx, structured.Search)
	if err != nil {
		uc.logger.Warn("query embedding failed, retrieval degrades to empty", "error", err)
		tr.docs = nil
		return tr
	}

	docs, err := uc.searcher.Search(ctx, structured, vector, uc.topK)
	if err != nil {
		uc.logger.Warn("structured search failed, retrieval degrades to empty", "error", err)
		tr.docs = nil
		return tr
	}
	tr.docs = docs
	return tr
}

func (uc *RecommendUseCase) filterStage(tr traversal) traversal {
	docs := uc.filter.BasicFilter(tr.query, tr.docs)
	category := uc.filter.ExtractCategory(tr.query)
	tr.docs = uc.filter.FilterByCategory(docs, category)
	return tr
}

// rankStage queries the full-catalog reranker once, filters its output
// by category and appends at most targetCount-len(docs) results after
// the existing candidates. fallbackAttempted is set unconditionally so
// the machine cannot loop back here.
func (uc *RecommendUseCase) rankStage(ctx context.Context, tr traversal) traversal {
	tr.fallbackAttempted = true

	ranked, err := uc.reranker.Rerank(ctx, tr.query, uc.rerankTopK)
	if err != nil {
		uc.logger.Warn("fallback rerank failed, degrades to empty addition", "error", err)
		return tr
	}

	category := uc.filter.ExtractCategory(tr.query)
	ranked = uc.filter.FilterByCategory(ranked, category)

	margin := uc.targetCount - len(tr.docs)
	if margin <= 0 {
		return tr
	}
	if len(ranked) > margin {
		ranked = ranked[:margin]
	}
	tr.docs = append(tr.docs[:len(tr.docs):len(tr.docs)], ranked...)
	return tr
}

// generateStage is terminal for the on-topic path. With no surviving
// candidates the generation call is skipped entirely.
func (uc *RecommendUseCase) generateStage(ctx context.Context, tr traversal) traversal {
	if len(tr.docs) == 0 {
		tr.recommendation = domain.NoProductsMessage(tr.lang)
		return tr
	}

	answer, err := uc.generator.GenerateRecommendation(ctx, tr.query, tr.docs)
	if err != nil {
		uc.logger.Error("recommendation generation failed", "error", err)
		tr.recommendation = domain.GenerationApology(tr.lang, err.Error())
		return tr
	}
	tr.recommendation = answer
	return tr
}
