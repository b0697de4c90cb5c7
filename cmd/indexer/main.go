package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/styleseek/fashion-recommender/internal/bootstrap"
	"github.com/styleseek/fashion-recommender/internal/config"
	"github.com/styleseek/fashion-recommender/internal/observability/logging"
	"github.com/styleseek/fashion-recommender/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("recommender-indexer", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	indexerMetrics := metrics.NewIndexerMetrics("recommender-indexer")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.IndexerMetricsPort,
		Handler: indexerMetrics.Handler(),
	}
	go func() {
		logger.Info("indexer_metrics_listening", "port", cfg.IndexerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("indexer_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("indexer_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIndexRequested(ctx, func(handlerCtx context.Context, productID string) error {
		indexCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()

		indexerMetrics.StartProduct()
		start := time.Now()
		indexErr := app.IndexUC.IndexByID(indexCtx, productID)
		indexerMetrics.FinishProduct("recommender-indexer", time.Since(start), indexErr)
		return indexErr
	})
	if err != nil {
		logger.Error("indexer_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
