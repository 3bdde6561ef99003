package models

import "strings"

// All is the filter sentinel meaning "no constraint".
const All = "all"

// ElectionRecord is one tabulated result row. ID is assigned by the canonical
// store on insert and never changes.
type ElectionRecord struct {
	ID           int64
	Category     string
	Municipality string
	VotingCenter string
	VotingPlace  string
	Votes        [PartyCount]int
}

// VotesFor returns the counter for a party code, or 0 for an unknown code.
func (r *ElectionRecord) VotesFor(code PartyCode) int {
	if !code.Valid() {
		return 0
	}
	return r.Votes[code.Index()]
}

// Field names a filterable string attribute. Values double as column and
// index field names.
type Field string

const (
	FieldCategory     Field = "category"
	FieldMunicipality Field = "municipality"
	FieldVotingCenter Field = "voting_center"
	FieldVotingPlace  Field = "voting_place"
)

// Value reads the field from a record.
func (f Field) Value(r *ElectionRecord) string {
	switch f {
	case FieldCategory:
		return r.Category
	case FieldMunicipality:
		return r.Municipality
	case FieldVotingCenter:
		return r.VotingCenter
	case FieldVotingPlace:
		return r.VotingPlace
	default:
		return ""
	}
}

// Filter constrains an aggregation. Empty or All values are absent constraints.
type Filter struct {
	Category     string
	Municipality string
	VotingCenter string
	VotingPlace  string
}

// Constraint is one active equality predicate of a filter.
type Constraint struct {
	Field Field
	Value string
}

// IsSet reports whether v constrains anything.
func IsSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

// Constraints returns the active predicates in a fixed field order.
func (f Filter) Constraints() []Constraint {
	var out []Constraint
	add := func(field Field, v string) {
		if IsSet(v) {
			out = append(out, Constraint{Field: field, Value: strings.TrimSpace(v)})
		}
	}
	add(FieldCategory, f.Category)
	add(FieldMunicipality, f.Municipality)
	add(FieldVotingCenter, f.VotingCenter)
	add(FieldVotingPlace, f.VotingPlace)
	return out
}

// Matches reports whether a record satisfies every active predicate.
func (f Filter) Matches(r *ElectionRecord) bool {
	for _, c := range f.Constraints() {
		if c.Field.Value(r) != c.Value {
			return false
		}
	}
	return true
}

// PartyVoteTotal is a computed aggregation row; never persisted.
type PartyVoteTotal struct {
	Code       PartyCode
	Party      string
	TotalVotes int64
}

// Bucket is one terms-aggregation bucket.
type Bucket struct {
	Key      string
	DocCount int64
}

// SuggestionCount is one popularity counter entry.
type SuggestionCount struct {
	Municipality string
	Count        float64
}
