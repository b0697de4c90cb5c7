package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/styleseek/fashion-recommender/internal/config"
	"github.com/styleseek/fashion-recommender/internal/core/ports"
	"github.com/styleseek/fashion-recommender/internal/core/usecase"
	"github.com/styleseek/fashion-recommender/internal/infrastructure/catalog"
	"github.com/styleseek/fashion-recommender/internal/infrastructure/llm/ollama"
	"github.com/styleseek/fashion-recommender/internal/infrastructure/queue/nats"
	"github.com/styleseek/fashion-recommender/internal/infrastructure/repository/postgres"
	"github.com/styleseek/fashion-recommender/internal/infrastructure/resilience"
	"github.com/styleseek/fashion-recommender/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.ProductRepository

	RecommendUC ports.Recommender
	IngestUC    ports.CatalogIngestor
	IndexUC     ports.ProductIndexer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewProductRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	categories, err := config.LoadCategories(cfg.CategoryConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load category vocabulary: %w", err)
	}
	filter := usecase.NewCategoryFilter(categories)

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	classifier := ollama.NewClassifier(ollamaClient)
	constructor := ollama.NewQueryConstructor(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator, err := ollama.NewGenerator(ollamaClient, cfg.GenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}

	denseIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	lexicalIndex := qdrant.NewLexicalClient(cfg.QdrantURL, cfg.QdrantRerankCollection)
	writer := qdrant.NewWriter(denseIndex, lexicalIndex)

	recommendUC := usecase.NewRecommendUseCase(
		classifier,
		constructor,
		embedder,
		denseIndex,
		lexicalIndex,
		generator,
		filter,
		logger,
		cfg.TargetCount,
		cfg.RetrieverTopK,
		cfg.RerankTopK,
	)
	ingestUC := usecase.NewIngestCatalogUseCase(catalog.NewReader(), repo, queue)
	indexUC := usecase.NewIndexProductUseCase(repo, embedder, writer)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue: queue,
		Repo:  repo,

		RecommendUC: recommendUC,
		IngestUC:    ingestUC,
		IndexUC:     indexUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
