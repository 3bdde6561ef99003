// Package ports defines the interfaces the results services consume.
// Interfaces shared by more than one service live here.
package ports

import (
	"context"

	"zgjedhjet/internal/results/models"
	"zgjedhjet/pkg/platform/audit"
)

// AuditPublisher emits operations audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// RecordSource is the read side shared by both stores so aggregation can run
// against either.
type RecordSource interface {
	// Query returns every record matching all active filter constraints.
	Query(ctx context.Context, filter models.Filter) ([]models.ElectionRecord, error)

	// Exists reports whether any record has value in field.
	Exists(ctx context.Context, field models.Field, value string) (bool, error)
}

// CanonicalStore is the system of record for election records.
type CanonicalStore interface {
	RecordSource

	// BulkInsert persists records in one write, assigning IDs, and returns
	// the number stored.
	BulkInsert(ctx context.Context, records []models.ElectionRecord) (int, error)
}

// SearchIndex is the denormalized mirror of the canonical store.
type SearchIndex interface {
	RecordSource

	IndexExists(ctx context.Context) (bool, error)
	CreateIndex(ctx context.Context, mapping models.IndexMapping) error

	// BulkIndex writes documents in one request keyed by record ID.
	BulkIndex(ctx context.Context, docs []models.IndexDocument) error

	// MunicipalityBuckets runs a phrase-prefix match on municipality and
	// returns terms buckets over the keyword subfield.
	MunicipalityBuckets(ctx context.Context, prefix string, size int) ([]models.Bucket, error)
}

// PopularityCounter counts how often each municipality was suggested.
type PopularityCounter interface {
	Increment(ctx context.Context, member string, delta float64) (float64, error)

	// TopN returns up to n members by descending score.
	TopN(ctx context.Context, n int) ([]models.SuggestionCount, error)
}
