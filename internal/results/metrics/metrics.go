package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the results module.
type Metrics struct {
	// Import outcomes: "imported", "no_valid_records", "rejected", "failed"
	ImportOutcome *prometheus.CounterVec

	RecordsImported prometheus.Counter
	RowErrors       prometheus.Counter

	// Migration outcomes: "migrated", "failed"
	MigrationOutcome *prometheus.CounterVec
	RecordsMigrated  prometheus.Counter

	// Aggregation latency by source: "canonical", "index"
	AggregateLatency *prometheus.HistogramVec

	SuggestRequests prometheus.Counter

	// Suggestion failures by stage: "query", "increment"
	SuggestFailures *prometheus.CounterVec

	// 1 while the suggestion counter breaker is open
	CounterBreakerOpen prometheus.Gauge
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a Metrics instance registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ImportOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zgjedhjet_import_outcomes_total",
			Help: "Total CSV imports by outcome",
		}, []string{"outcome"}),

		RecordsImported: f.NewCounter(prometheus.CounterOpts{
			Name: "zgjedhjet_records_imported_total",
			Help: "Total election records written to the canonical store",
		}),

		RowErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "zgjedhjet_import_row_errors_total",
			Help: "Total CSV lines rejected during import",
		}),

		MigrationOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zgjedhjet_index_migrations_total",
			Help: "Total search index migrations by outcome",
		}, []string{"outcome"}),

		RecordsMigrated: f.NewCounter(prometheus.CounterOpts{
			Name: "zgjedhjet_records_migrated_total",
			Help: "Total documents written to the search index",
		}),

		AggregateLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zgjedhjet_aggregate_duration_seconds",
			Help:    "Duration of vote aggregation queries by source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),

		SuggestRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "zgjedhjet_suggest_requests_total",
			Help: "Total municipality suggestion requests with a non-blank prefix",
		}),

		SuggestFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zgjedhjet_suggest_failures_total",
			Help: "Total swallowed suggestion failures by stage",
		}, []string{"stage"}),

		CounterBreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "zgjedhjet_suggestion_counter_breaker_open",
			Help: "1 while the suggestion counter circuit breaker is open",
		}),
	}
}

// IncrementImportOutcome records how an import ended.
func (m *Metrics) IncrementImportOutcome(outcome string) {
	if m != nil {
		m.ImportOutcome.WithLabelValues(outcome).Inc()
	}
}

// AddRecordsImported records stored rows and rejected lines of one import.
func (m *Metrics) AddRecordsImported(stored, rejected int) {
	if m != nil {
		m.RecordsImported.Add(float64(stored))
		m.RowErrors.Add(float64(rejected))
	}
}

// IncrementMigrationOutcome records how a migration ended and how many
// documents it wrote.
func (m *Metrics) IncrementMigrationOutcome(outcome string, migrated int) {
	if m != nil {
		m.MigrationOutcome.WithLabelValues(outcome).Inc()
		m.RecordsMigrated.Add(float64(migrated))
	}
}

// ObserveAggregateLatency records one aggregation against a source.
func (m *Metrics) ObserveAggregateLatency(source string, d time.Duration) {
	if m != nil {
		m.AggregateLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncrementSuggestRequests counts a suggestion request.
func (m *Metrics) IncrementSuggestRequests() {
	if m != nil {
		m.SuggestRequests.Inc()
	}
}

// IncrementSuggestFailure counts a swallowed failure at stage.
func (m *Metrics) IncrementSuggestFailure(stage string) {
	if m != nil {
		m.SuggestFailures.WithLabelValues(stage).Inc()
	}
}

// SetCounterBreakerOpen reports the suggestion counter breaker state.
func (m *Metrics) SetCounterBreakerOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CounterBreakerOpen.Set(1)
		return
	}
	m.CounterBreakerOpen.Set(0)
}
