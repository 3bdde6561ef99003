package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartyTableIsExhaustive(t *testing.T) {
	table := Parties()
	require.Len(t, table, 28)
	require.NoError(t, checkParties(table))
	assert.Equal(t, PartyCode(111), table[0].Code)
	assert.Equal(t, "partia111", table[0].Field)
	assert.Equal(t, PartyCode(138), table[27].Code)
	assert.Equal(t, "partia138", table[27].Field)
}

func TestCheckPartiesRejectsGaps(t *testing.T) {
	table := Parties()
	table[5] = table[6]
	assert.Error(t, checkParties(table))
	assert.Error(t, checkParties(Parties()[:27]))
}

func TestPartyAccessorsReadTheirColumn(t *testing.T) {
	var r ElectionRecord
	for i := range r.Votes {
		r.Votes[i] = (i + 1) * 10
	}
	for _, p := range Parties() {
		assert.Equal(t, (p.Code.Index()+1)*10, p.Accessor(&r), p.Field)
		assert.Equal(t, p.Accessor(&r), r.VotesFor(p.Code))
	}
	assert.Equal(t, 0, r.VotesFor(PartyCode(110)))
}

func TestParsePartyCode(t *testing.T) {
	tests := []struct {
		in      string
		want    PartyCode
		set     bool
		wantErr bool
	}{
		{in: "111", want: 111, set: true},
		{in: "partia138", want: 138, set: true},
		{in: "PARTIA120", want: 120, set: true},
		{in: " 125 ", want: 125, set: true},
		{in: "", set: false},
		{in: "all", set: false},
		{in: "ALL", set: false},
		{in: "110", wantErr: true},
		{in: "139", wantErr: true},
		{in: "partia", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			code, set, err := ParsePartyCode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.set, set)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestFilterConstraintsIgnoreAllSentinel(t *testing.T) {
	f := Filter{Category: "All", Municipality: " Prishtinë ", VotingCenter: "", VotingPlace: "1001A"}
	assert.Equal(t, []Constraint{
		{Field: FieldMunicipality, Value: "Prishtinë"},
		{Field: FieldVotingPlace, Value: "1001A"},
	}, f.Constraints())
}

func TestFilterMatches(t *testing.T) {
	r := &ElectionRecord{Category: "Kuvend", Municipality: "Prizren", VotingCenter: "C1", VotingPlace: "P1"}
	assert.True(t, Filter{}.Matches(r))
	assert.True(t, Filter{Category: "Kuvend", Municipality: "all"}.Matches(r))
	assert.False(t, Filter{Category: "Kuvend", Municipality: "Peja"}.Matches(r))
	assert.False(t, Filter{VotingPlace: "p1"}.Matches(r), "matching is exact")
}

func TestIndexDocumentRoundTripsRecord(t *testing.T) {
	r := ElectionRecord{ID: 7, Category: "c", Municipality: "m", VotingCenter: "vc", VotingPlace: "vp"}
	r.Votes[0] = 5
	r.Votes[27] = 9

	doc := NewIndexDocument(r)
	assert.Equal(t, r, doc.Record())

	src := doc.Source()
	assert.Len(t, src, 32)
	assert.Equal(t, 5, src["partia111"])
	assert.Equal(t, 9, src["partia138"])
	assert.Equal(t, "m", src["municipality"])
}

func TestDefaultIndexMappingBody(t *testing.T) {
	body := DefaultIndexMapping().Body()

	props := body["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Len(t, props, 32)
	assert.Equal(t, map[string]any{"type": "keyword"}, props["category"])
	assert.Equal(t, map[string]any{"type": "integer"}, props["partia130"])

	muni := props["municipality"].(map[string]any)
	assert.Equal(t, "text", muni["type"])
	assert.Equal(t, MunicipalityAnalyzer, muni["analyzer"])

	analyzer := body["settings"].(map[string]any)["analysis"].(map[string]any)["analyzer"].(map[string]any)[MunicipalityAnalyzer].(map[string]any)
	assert.Equal(t, "standard", analyzer["tokenizer"])
	assert.Equal(t, []string{"lowercase", "asciifolding"}, analyzer["filter"])
}
