package projection

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"zgjedhjet/internal/results/metrics"
	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/ports"
	dErrors "zgjedhjet/pkg/domain-errors"
	"zgjedhjet/pkg/platform/audit"
	"zgjedhjet/pkg/requestcontext"
)

// Messages carried by coded errors; handlers return them to clients.
const (
	MsgCreateIndexFailed = "Failed to create Elasticsearch index"
	MsgReadFailed        = "Internal server error during migration"
	MsgIndexFailed       = "Failed to index documents"
)

// Service keeps the search index in step with the canonical store.
type Service struct {
	records ports.RecordSource
	index   ports.SearchIndex
	mapping models.IndexMapping
	subject string
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   ports.AuditPublisher
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithIndexName names the index in logs and audit events.
func WithIndexName(name string) Option {
	return func(s *Service) {
		s.subject = name
	}
}

// New constructs a projection Service.
func New(records ports.RecordSource, index ports.SearchIndex, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("canonical store is required")
	}
	if index == nil {
		return nil, errors.New("search index is required")
	}
	s := &Service{
		records: records,
		index:   index,
		mapping: models.DefaultIndexMapping(),
		subject: "results",
		logger:  slog.Default(),
		tracer:  otel.Tracer("zgjedhjet/results/projection"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureIndex creates the index with the explicit mapping unless it exists.
func (s *Service) EnsureIndex(ctx context.Context) error {
	exists, err := s.index.IndexExists(ctx)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, MsgCreateIndexFailed)
	}
	if exists {
		return nil
	}
	if err := s.index.CreateIndex(ctx, s.mapping); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, MsgCreateIndexFailed)
	}
	s.logger.InfoContext(ctx, "search index created",
		"request_id", requestcontext.RequestID(ctx),
		"index", s.subject,
	)
	s.emit(ctx, audit.EventIndexCreated, 0)
	return nil
}

// Migrate copies every canonical record into the index in one bulk write and
// returns the number of documents written. Document IDs are record IDs, so
// running it again overwrites rather than duplicates.
func (s *Service) Migrate(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "results.migrate")
	defer span.End()

	if err := s.EnsureIndex(ctx); err != nil {
		s.fail(ctx, span, "ensure index", err)
		return 0, err
	}

	records, err := s.records.Query(ctx, models.Filter{})
	if err != nil {
		s.fail(ctx, span, "read records", err)
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, MsgReadFailed)
	}
	if len(records) == 0 {
		s.metrics.IncrementMigrationOutcome("migrated", 0)
		return 0, nil
	}

	docs := make([]models.IndexDocument, 0, len(records))
	for _, r := range records {
		docs = append(docs, models.NewIndexDocument(r))
	}

	if err := s.index.BulkIndex(context.WithoutCancel(ctx), docs); err != nil {
		s.fail(ctx, span, "bulk index", err)
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, MsgIndexFailed)
	}

	s.metrics.IncrementMigrationOutcome("migrated", len(docs))
	s.emit(ctx, audit.EventIndexMigrated, len(docs))
	s.logger.InfoContext(ctx, "search index migrated",
		"request_id", requestcontext.RequestID(ctx),
		"index", s.subject,
		"documents", len(docs),
	)
	span.SetAttributes(attribute.Int("migrate.documents", len(docs)))
	return len(docs), nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	s.metrics.IncrementMigrationOutcome("failed", 0)
	s.logger.ErrorContext(ctx, "migration failed",
		"request_id", requestcontext.RequestID(ctx),
		"index", s.subject,
		"stage", stage,
		"error", err,
	)
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, count int) {
	if s.audit == nil {
		return
	}
	err := s.audit.Emit(ctx, audit.Event{
		Category:  action.Category(),
		Action:    string(action),
		Subject:   s.subject,
		RequestID: requestcontext.RequestID(ctx),
		Count:     count,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", requestcontext.RequestID(ctx),
			"action", string(action),
			"error", err,
		)
	}
}
