package httpserver

import (
	"net/http"
	"time"

	"zgjedhjet/internal/platform/config"
)

// New builds an HTTP server with the configured timeouts. Write timeout must
// cover a full CSV import or migration.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}
