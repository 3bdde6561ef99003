package suggest

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"zgjedhjet/internal/results/metrics"
	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/ports"
	dErrors "zgjedhjet/pkg/domain-errors"
	"zgjedhjet/pkg/platform/circuit"
	"zgjedhjet/pkg/requestcontext"
)

// DefaultBucketLimit caps distinct municipalities considered per suggestion.
const DefaultBucketLimit = 10000

// Service serves municipality autocomplete and tracks how often each
// municipality was suggested.
type Service struct {
	index       ports.SearchIndex
	counter     ports.PopularityCounter
	breaker     *circuit.Breaker
	bucketLimit int
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
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

// WithBucketLimit sets the terms aggregation size.
func WithBucketLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.bucketLimit = n
		}
	}
}

// WithBreaker replaces the counter circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		if b != nil {
			s.breaker = b
		}
	}
}

// New constructs a suggestion Service.
func New(index ports.SearchIndex, counter ports.PopularityCounter, opts ...Option) (*Service, error) {
	if index == nil {
		return nil, errors.New("search index is required")
	}
	if counter == nil {
		return nil, errors.New("popularity counter is required")
	}
	s := &Service{
		index:       index,
		counter:     counter,
		breaker:     circuit.New("suggestion-counter"),
		bucketLimit: DefaultBucketLimit,
		logger:      slog.Default(),
		tracer:      otel.Tracer("zgjedhjet/results/suggest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Suggest returns up to top municipalities whose name phrase-prefix matches
// prefix, in bucket order, and counts each returned name once. It never
// fails: a query error yields an empty list and counter errors are logged.
func (s *Service) Suggest(ctx context.Context, prefix string, top int) []string {
	if strings.TrimSpace(prefix) == "" || top <= 0 {
		return []string{}
	}

	ctx, span := s.tracer.Start(ctx, "results.suggest",
		trace.WithAttributes(attribute.Int("suggest.top", top)))
	defer span.End()
	s.metrics.IncrementSuggestRequests()

	buckets, err := s.index.MunicipalityBuckets(ctx, prefix, s.bucketLimit)
	if err != nil {
		span.RecordError(err)
		s.metrics.IncrementSuggestFailure("query")
		s.logger.WarnContext(ctx, "municipality suggestion query failed",
			"request_id", requestcontext.RequestID(ctx),
			"prefix", prefix,
			"error", err,
		)
		return []string{}
	}

	if len(buckets) > top {
		buckets = buckets[:top]
	}
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Key)
	}

	s.countSuggestions(ctx, names)
	span.SetAttributes(attribute.Int("suggest.results", len(names)))
	return names
}

// countSuggestions increments each name once. While the breaker is open only
// the first increment runs, as a probe.
func (s *Service) countSuggestions(ctx context.Context, names []string) {
	for _, name := range names {
		if _, err := s.counter.Increment(ctx, name, 1); err != nil {
			s.metrics.IncrementSuggestFailure("increment")
			s.logger.WarnContext(ctx, "failed to increment suggestion count",
				"request_id", requestcontext.RequestID(ctx),
				"municipality", name,
				"error", err,
			)
			open, change := s.breaker.RecordFailure()
			if change.Opened {
				s.metrics.SetCounterBreakerOpen(true)
				s.logger.ErrorContext(ctx, "suggestion counter circuit opened",
					"request_id", requestcontext.RequestID(ctx),
					"breaker", s.breaker.Name(),
				)
			}
			if open {
				return
			}
			continue
		}
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.metrics.SetCounterBreakerOpen(false)
			s.logger.InfoContext(ctx, "suggestion counter circuit closed",
				"request_id", requestcontext.RequestID(ctx),
				"breaker", s.breaker.Name(),
			)
		}
	}
}

// TopSuggested returns the top most suggested municipalities by count.
func (s *Service) TopSuggested(ctx context.Context, top int) ([]models.SuggestionCount, error) {
	if top <= 0 {
		return []models.SuggestionCount{}, nil
	}
	counts, err := s.counter.TopN(ctx, top)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read suggestion statistics",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read suggestion statistics")
	}
	if counts == nil {
		counts = []models.SuggestionCount{}
	}
	return counts, nil
}
