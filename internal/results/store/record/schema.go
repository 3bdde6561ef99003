package record

import (
	"strings"

	"zgjedhjet/internal/results/models"
)

// Table holds the canonical election records.
const Table = "election_records"

var stringColumns = []string{
	string(models.FieldCategory),
	string(models.FieldMunicipality),
	string(models.FieldVotingCenter),
	string(models.FieldVotingPlace),
}

// insertColumns is every column except the generated id, in COPY order.
var insertColumns = append(append([]string{}, stringColumns...), models.PartyFields()...)

var selectColumns = "id, " + strings.Join(insertColumns, ", ")

func schemaDDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS " + Table + " (\n")
	b.WriteString("\tid BIGSERIAL PRIMARY KEY")
	for _, c := range stringColumns {
		b.WriteString(",\n\t" + c + " TEXT NOT NULL DEFAULT ''")
	}
	for _, c := range models.PartyFields() {
		b.WriteString(",\n\t" + c + " INTEGER NOT NULL DEFAULT 0")
	}
	b.WriteString("\n);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_" + Table + "_voting_center ON " + Table + " (voting_center);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_" + Table + "_voting_place ON " + Table + " (voting_place);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_" + Table + "_municipality ON " + Table + " (municipality);\n")
	return b.String()
}

// column maps a filter field to its column, rejecting anything else.
func column(f models.Field) (string, bool) {
	switch f {
	case models.FieldCategory, models.FieldMunicipality, models.FieldVotingCenter, models.FieldVotingPlace:
		return string(f), true
	default:
		return "", false
	}
}
