package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	platformmetrics "zgjedhjet/internal/platform/metrics"
	"zgjedhjet/internal/platform/middleware"
	"zgjedhjet/internal/results/handler"
	"zgjedhjet/pkg/platform/httputil"
	"zgjedhjet/pkg/platform/middleware/metadata"
	"zgjedhjet/pkg/platform/middleware/requestid"
	"zgjedhjet/pkg/platform/middleware/requesttime"
)

func newRouter(log *slog.Logger, m *platformmetrics.Metrics, results *handler.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(middleware.AccessLog(log, m))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", platformmetrics.Handler())

	results.Register(r)
	return r
}
