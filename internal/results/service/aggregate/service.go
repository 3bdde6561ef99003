package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"zgjedhjet/internal/results/metrics"
	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/ports"
	dErrors "zgjedhjet/pkg/domain-errors"
	"zgjedhjet/pkg/requestcontext"
)

// Source selects which store answers an aggregation.
type Source string

const (
	SourceCanonical Source = "canonical"
	SourceIndex     Source = "index"
)

// Query is one aggregation request. A nil Party asks for every party.
type Query struct {
	Filter models.Filter
	Party  *models.PartyCode
	Source Source
}

// Service sums per-party votes over filtered records.
type Service struct {
	canonical ports.RecordSource
	index     ports.RecordSource
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

// New constructs an aggregation Service over both stores.
func New(canonical, index ports.RecordSource, opts ...Option) (*Service, error) {
	if canonical == nil {
		return nil, errors.New("canonical store is required")
	}
	if index == nil {
		return nil, errors.New("search index is required")
	}
	s := &Service{
		canonical: canonical,
		index:     index,
		logger:    slog.Default(),
		tracer:    otel.Tracer("zgjedhjet/results/aggregate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Aggregate returns vote totals for records matching the filter: one row for
// the selected party, or all parties in ascending code order. Voting center
// and voting place values must exist somewhere in the source, otherwise the
// result is a not found error naming the value.
func (s *Service) Aggregate(ctx context.Context, q Query) ([]models.PartyVoteTotal, error) {
	source, err := s.source(q.Source)
	if err != nil {
		return nil, err
	}
	if q.Party != nil && !q.Party.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("party %d is not a party code", int(*q.Party)))
	}

	ctx, span := s.tracer.Start(ctx, "results.aggregate",
		trace.WithAttributes(attribute.String("aggregate.source", string(q.Source))))
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveAggregateLatency(string(q.Source), time.Since(start)) }()

	if err := s.checkExistence(ctx, source, q.Filter); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			s.fail(ctx, span, q.Source, "existence check", err)
		}
		return nil, err
	}

	records, err := source.Query(ctx, q.Filter)
	if err != nil {
		s.fail(ctx, span, q.Source, "query", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query election records")
	}
	span.SetAttributes(attribute.Int("aggregate.records", len(records)))

	return Totals(records, q.Party), nil
}

// Totals sums counters over records. A nil party yields all 28 totals.
func Totals(records []models.ElectionRecord, party *models.PartyCode) []models.PartyVoteTotal {
	parties := models.Parties()
	if party != nil {
		parties = []models.Party{parties[party.Index()]}
	}

	out := make([]models.PartyVoteTotal, 0, len(parties))
	for _, p := range parties {
		var sum int64
		for i := range records {
			sum += int64(p.Accessor(&records[i]))
		}
		out = append(out, models.PartyVoteTotal{Code: p.Code, Party: p.Field, TotalVotes: sum})
	}
	return out
}

func (s *Service) source(src Source) (ports.RecordSource, error) {
	switch src {
	case SourceCanonical:
		return s.canonical, nil
	case SourceIndex:
		return s.index, nil
	default:
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown source %q", src))
	}
}

// checkExistence verifies voting center and voting place concurrently over
// the whole unfiltered source. Both checks run to completion so the reported
// error does not depend on which finished first; voting center wins.
func (s *Service) checkExistence(ctx context.Context, source ports.RecordSource, filter models.Filter) error {
	checks := []struct {
		field models.Field
		label string
		value string
	}{
		{models.FieldVotingCenter, "Voting center", filter.VotingCenter},
		{models.FieldVotingPlace, "Voting place", filter.VotingPlace},
	}

	var g errgroup.Group
	errs := make([]error, len(checks))
	for i, c := range checks {
		if !models.IsSet(c.value) {
			continue
		}
		value := strings.TrimSpace(c.value)
		g.Go(func() error {
			ok, err := source.Exists(ctx, c.field, value)
			switch {
			case err != nil:
				errs[i] = dErrors.Wrap(err, dErrors.CodeInternal, "failed to check "+strings.ToLower(c.label))
			case !ok:
				errs[i] = dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("%s '%s' not found", c.label, value))
			}
			return nil
		})
	}
	_ = g.Wait()

	return firstNonNil(errs)
}

func firstNonNil(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, src Source, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	s.logger.ErrorContext(ctx, "aggregation failed",
		"request_id", requestcontext.RequestID(ctx),
		"source", string(src),
		"stage", stage,
		"error", err,
	)
}
