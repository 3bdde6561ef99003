package models

// MunicipalityAnalyzer is the custom analyzer applied to the municipality text field.
const MunicipalityAnalyzer = "municipality_analyzer"

// MunicipalityKeyword is the exact-match subfield of municipality.
const MunicipalityKeyword = string(FieldMunicipality) + ".keyword"

// IndexDocument is the search index projection of an ElectionRecord, keyed by
// the record ID.
type IndexDocument struct {
	ID           int64
	Category     string
	Municipality string
	VotingCenter string
	VotingPlace  string
	Votes        [PartyCount]int
}

// NewIndexDocument projects a record field for field.
func NewIndexDocument(r ElectionRecord) IndexDocument {
	return IndexDocument{
		ID:           r.ID,
		Category:     r.Category,
		Municipality: r.Municipality,
		VotingCenter: r.VotingCenter,
		VotingPlace:  r.VotingPlace,
		Votes:        r.Votes,
	}
}

// Record converts the document back to a record.
func (d IndexDocument) Record() ElectionRecord {
	return ElectionRecord{
		ID:           d.ID,
		Category:     d.Category,
		Municipality: d.Municipality,
		VotingCenter: d.VotingCenter,
		VotingPlace:  d.VotingPlace,
		Votes:        d.Votes,
	}
}

// Source is the flat JSON document stored in the index.
func (d IndexDocument) Source() map[string]any {
	src := make(map[string]any, 4+PartyCount)
	src[string(FieldCategory)] = d.Category
	src[string(FieldMunicipality)] = d.Municipality
	src[string(FieldVotingCenter)] = d.VotingCenter
	src[string(FieldVotingPlace)] = d.VotingPlace
	for _, p := range parties {
		src[p.Field] = d.Votes[p.Code.Index()]
	}
	return src
}

// IndexMapping is the explicit index schema.
type IndexMapping struct {
	KeywordFields []Field
	TextField     Field
	Analyzer      string
	IntegerFields []string
}

// DefaultIndexMapping returns the results index schema: keyword filters,
// an ascii-folded municipality text field with a keyword subfield, and the
// party counters as integers.
func DefaultIndexMapping() IndexMapping {
	return IndexMapping{
		KeywordFields: []Field{FieldCategory, FieldVotingCenter, FieldVotingPlace},
		TextField:     FieldMunicipality,
		Analyzer:      MunicipalityAnalyzer,
		IntegerFields: PartyFields(),
	}
}

// Body renders the mapping as an index creation request body.
func (m IndexMapping) Body() map[string]any {
	props := make(map[string]any, len(m.KeywordFields)+1+len(m.IntegerFields))
	for _, f := range m.KeywordFields {
		props[string(f)] = map[string]any{"type": "keyword"}
	}
	props[string(m.TextField)] = map[string]any{
		"type":     "text",
		"analyzer": m.Analyzer,
		"fields": map[string]any{
			"keyword": map[string]any{"type": "keyword"},
		},
	}
	for _, f := range m.IntegerFields {
		props[f] = map[string]any{"type": "integer"}
	}

	return map[string]any{
		"settings": map[string]any{
			"analysis": map[string]any{
				"analyzer": map[string]any{
					m.Analyzer: map[string]any{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "asciifolding"},
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": props,
		},
	}
}
