package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/service/aggregate"
	"zgjedhjet/internal/results/service/ingest"
	dErrors "zgjedhjet/pkg/domain-errors"
	"zgjedhjet/pkg/platform/httputil"
	"zgjedhjet/pkg/requestcontext"
)

// uploadField is the multipart field carrying the CSV file.
const uploadField = "file"

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// Importer loads an uploaded CSV file into the canonical store.
type Importer interface {
	Ingest(ctx context.Context, upload ingest.Upload) (*ingest.ImportResult, error)
}

// Migrator copies canonical records into the search index.
type Migrator interface {
	Migrate(ctx context.Context) (int, error)
}

// Aggregator sums party votes over filtered records.
type Aggregator interface {
	Aggregate(ctx context.Context, q aggregate.Query) ([]models.PartyVoteTotal, error)
}

// Suggester serves municipality autocomplete and its popularity statistics.
type Suggester interface {
	Suggest(ctx context.Context, prefix string, top int) []string
	TopSuggested(ctx context.Context, top int) ([]models.SuggestionCount, error)
}

// Config bounds request parameters.
type Config struct {
	MaxUploadBytes int64
	DefaultTop     int
	MaxTop         int
}

// Handler wires the results endpoints to their services.
type Handler struct {
	importer   Importer
	migrator   Migrator
	aggregator Aggregator
	suggester  Suggester
	logger     *slog.Logger
	cfg        Config
}

// New constructs a results handler. Zero Config values fall back to a 64 MiB
// upload limit and top defaults of 10 and 1000.
func New(importer Importer, migrator Migrator, aggregator Aggregator, suggester Suggester, logger *slog.Logger, cfg Config) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	if cfg.DefaultTop <= 0 {
		cfg.DefaultTop = 10
	}
	if cfg.MaxTop <= 0 {
		cfg.MaxTop = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		importer:   importer,
		migrator:   migrator,
		aggregator: aggregator,
		suggester:  suggester,
		logger:     logger,
		cfg:        cfg,
	}
}

// Register mounts the results endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/results", func(r chi.Router) {
		r.Post("/import", h.HandleImport)
		r.Get("/", h.HandleAggregateCanonical)
		r.Route("/search", func(r chi.Router) {
			r.Get("/", h.HandleAggregateIndex)
			r.Post("/migrate", h.HandleMigrate)
			r.Get("/suggest", h.HandleSuggest)
			r.Get("/statistics", h.HandleStatistics)
		})
	})
}

// HandleImport handles POST /api/results/import.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	upload, cleanup, err := readUpload(r)
	defer cleanup()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.WarnContext(ctx, "upload rejected",
				"request_id", requestID,
				"limit_bytes", tooLarge.Limit,
			)
			httputil.WriteJSON(w, http.StatusRequestEntityTooLarge, ImportResponse{
				Message: "File too large",
				Errors:  []string{fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit)},
			})
			return
		}
		h.logger.WarnContext(ctx, "malformed multipart request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusBadRequest, ImportResponse{
			Message: "Invalid multipart request",
			Errors:  []string{err.Error()},
		})
		return
	}

	result, err := h.importer.Ingest(ctx, upload)
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			httputil.WriteJSON(w, http.StatusBadRequest, ImportResponse{
				Message: verr.Message,
				Errors:  []string{verr.Reason},
			})
			return
		}
		h.logger.ErrorContext(ctx, "import failed",
			"request_id", requestID,
			"file", upload.Filename,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, ImportResponse{
			Message: messageOf(err),
			Errors:  []string{string(dErrors.CodeInternal)},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toImportResponse(result))
}

// readUpload extracts the CSV part. A request without the file field yields
// an empty Upload so the ingestor reports it.
func readUpload(r *http.Request) (ingest.Upload, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return ingest.Upload{}, noop, nil
		}
		return ingest.Upload{}, noop, err
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return ingest.Upload{}, cleanup, nil
		}
		return ingest.Upload{}, cleanup, err
	}
	return ingest.Upload{
			Filename: header.Filename,
			Size:     header.Size,
			Body:     file,
		}, func() {
			_ = file.Close()
			cleanup()
		}, nil
}

// HandleAggregateCanonical handles GET /api/results.
func (h *Handler) HandleAggregateCanonical(w http.ResponseWriter, r *http.Request) {
	h.handleAggregate(w, r, aggregate.SourceCanonical)
}

// HandleAggregateIndex handles GET /api/results/search.
func (h *Handler) HandleAggregateIndex(w http.ResponseWriter, r *http.Request) {
	h.handleAggregate(w, r, aggregate.SourceIndex)
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request, source aggregate.Source) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	q, err := aggregateRequestFrom(r.URL.Query()).Query(source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	totals, err := h.aggregator.Aggregate(ctx, q)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "aggregation failed",
				"request_id", requestID,
				"source", string(source),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAggregateResponse(totals))
}

// HandleMigrate handles POST /api/results/search/migrate.
func (h *Handler) HandleMigrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n, err := h.migrator.Migrate(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "migration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, MigrationResponse{
			Message: messageOf(err),
			Error:   string(dErrors.CodeInternal),
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, MigrationResponse{
		Success:         true,
		Message:         migratedMessage(n),
		RecordsMigrated: n,
	})
}

// HandleSuggest handles GET /api/results/search/suggest.
func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	top, err := parseTop(values, h.cfg.DefaultTop, h.cfg.MaxTop)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	suggestions := h.suggester.Suggest(r.Context(), values.Get(paramQuery), top)
	if suggestions == nil {
		suggestions = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, suggestions)
}

// HandleStatistics handles GET /api/results/search/statistics.
func (h *Handler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	top, err := parseTop(r.URL.Query(), h.cfg.DefaultTop, h.cfg.MaxTop)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	counts, err := h.suggester.TopSuggested(ctx, top)
	if err != nil {
		h.logger.ErrorContext(ctx, "suggestion statistics failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toStatistics(counts))
}

func messageOf(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "Internal server error"
}
