package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by purpose so sinks can route them.
type EventCategory string

const (
	// CategoryData covers events that change the contents of a data store
	// (imports into the canonical store, index rebuilds).
	CategoryData EventCategory = "data"

	// CategoryOperations covers routine operational visibility.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an action.
type AuditEvent string

const (
	EventResultsImported       AuditEvent = "results_imported"
	EventResultsImportRejected AuditEvent = "results_import_rejected"
	EventIndexCreated          AuditEvent = "search_index_created"
	EventIndexMigrated         AuditEvent = "search_index_migrated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventResultsImported:       CategoryData,
	EventResultsImportRejected: CategoryOperations,
	EventIndexCreated:          CategoryOperations,
	EventIndexMigrated:         CategoryData,
}

// Category returns the category for a known action, CategoryOperations otherwise.
func (e AuditEvent) Category() EventCategory {
	if c, ok := eventCategories[e]; ok {
		return c
	}
	return CategoryOperations
}

// Event is emitted from services to record a completed action. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	// Subject identifies what the action touched, e.g. an import batch ID or an
	// index name.
	Subject   string
	RequestID string
	// Count is the number of records the action affected.
	Count int
	// Detail carries free-form outcome text (file name, failure reason).
	Detail string
}

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
