package ingest

import "strings"

// ParseLine splits one line on commas. A double quote toggles quoting and is
// dropped; commas inside quotes are literal. There is no escape handling, so
// an unterminated quote runs to the end of the line. It never fails and an
// empty line yields one empty field.
func ParseLine(line string) []string {
	var (
		fields  []string
		current strings.Builder
		quoted  bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(fields, current.String())
}
