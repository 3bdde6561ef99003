package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"zgjedhjet/internal/platform/config"
	"zgjedhjet/internal/platform/httpserver"
	"zgjedhjet/internal/platform/logger"
	platformmetrics "zgjedhjet/internal/platform/metrics"
	"zgjedhjet/internal/results/handler"
	resultsmetrics "zgjedhjet/internal/results/metrics"
	"zgjedhjet/internal/results/service/aggregate"
	"zgjedhjet/internal/results/service/ingest"
	"zgjedhjet/internal/results/service/projection"
	"zgjedhjet/internal/results/service/suggest"
	"zgjedhjet/pkg/platform/sentinel"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	infra, err := connect(ctx, cfg, log)
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			log.Error("backend unreachable; unset its URL to run on the in-memory store", "error", err)
		}
		return err
	}
	defer infra.Close()

	m := resultsmetrics.New()

	ingestor, err := ingest.New(infra.records,
		ingest.WithLogger(log),
		ingest.WithMetrics(m),
		ingest.WithAuditPublisher(infra.audit),
	)
	if err != nil {
		return fmt.Errorf("create ingest service: %w", err)
	}
	projector, err := projection.New(infra.records, infra.index,
		projection.WithLogger(log),
		projection.WithMetrics(m),
		projection.WithAuditPublisher(infra.audit),
		projection.WithIndexName(cfg.Elasticsearch.Index),
	)
	if err != nil {
		return fmt.Errorf("create projection service: %w", err)
	}
	aggregator, err := aggregate.New(infra.records, infra.index,
		aggregate.WithLogger(log),
		aggregate.WithMetrics(m),
	)
	if err != nil {
		return fmt.Errorf("create aggregation service: %w", err)
	}
	suggester, err := suggest.New(infra.index, infra.counter,
		suggest.WithLogger(log),
		suggest.WithMetrics(m),
		suggest.WithBucketLimit(cfg.Elasticsearch.SuggestBucketLimit),
	)
	if err != nil {
		return fmt.Errorf("create suggestion service: %w", err)
	}

	// The index is also created on first migration; a failure here only delays it.
	if err := projector.EnsureIndex(ctx); err != nil {
		log.WarnContext(ctx, "search index not ready", "index", cfg.Elasticsearch.Index, "error", err)
	}

	resultsHandler := handler.New(ingestor, projector, aggregator, suggester, log, handler.Config{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		DefaultTop:     cfg.Suggestions.DefaultTop,
		MaxTop:         cfg.Suggestions.MaxTop,
	})
	router := newRouter(log, platformmetrics.New(), resultsHandler)

	srv := httpserver.New(cfg.Server, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting zgjedhjet", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
