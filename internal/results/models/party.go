package models

import (
	"fmt"
	"strconv"
	"strings"
)

// PartyCode identifies a party column, 111 through 138.
type PartyCode int

const (
	FirstParty PartyCode = 111
	LastParty  PartyCode = 138
	PartyCount           = int(LastParty-FirstParty) + 1
)

// PartyFieldPrefix prefixes party codes in column and index field names.
const PartyFieldPrefix = "partia"

// Valid reports whether the code is in range.
func (c PartyCode) Valid() bool {
	return c >= FirstParty && c <= LastParty
}

// Index is the position of the code in ElectionRecord.Votes.
func (c PartyCode) Index() int {
	return int(c - FirstParty)
}

// FieldName is the column and index field name, e.g. "partia111".
func (c PartyCode) FieldName() string {
	return PartyFieldPrefix + strconv.Itoa(int(c))
}

func (c PartyCode) String() string {
	return c.FieldName()
}

// Party is one entry of the fixed party table.
type Party struct {
	Code     PartyCode
	Field    string
	Accessor func(*ElectionRecord) int
}

var parties = buildParties()

func buildParties() []Party {
	out := make([]Party, 0, PartyCount)
	for c := FirstParty; c <= LastParty; c++ {
		idx := c.Index()
		out = append(out, Party{
			Code:     c,
			Field:    c.FieldName(),
			Accessor: func(r *ElectionRecord) int { return r.Votes[idx] },
		})
	}
	if err := checkParties(out); err != nil {
		panic(err)
	}
	return out
}

// checkParties verifies the table covers every code exactly once, in order.
func checkParties(table []Party) error {
	if len(table) != PartyCount {
		return fmt.Errorf("party table has %d entries, want %d", len(table), PartyCount)
	}
	for i, p := range table {
		want := FirstParty + PartyCode(i)
		if p.Code != want {
			return fmt.Errorf("party table entry %d is %d, want %d", i, p.Code, want)
		}
		if p.Field != want.FieldName() || p.Accessor == nil {
			return fmt.Errorf("party table entry %d is incomplete", i)
		}
	}
	return nil
}

// Parties returns the party table in ascending code order.
func Parties() []Party {
	out := make([]Party, len(parties))
	copy(out, parties)
	return out
}

// PartyFields returns the 28 party field names in ascending code order.
func PartyFields() []string {
	out := make([]string, len(parties))
	for i, p := range parties {
		out[i] = p.Field
	}
	return out
}

// ParsePartyCode accepts "111" or "partia111". The second result is false
// for the All sentinel or an empty value.
func ParsePartyCode(s string) (PartyCode, bool, error) {
	s = strings.TrimSpace(s)
	if !IsSet(s) {
		return 0, false, nil
	}
	digits := s
	if len(s) > len(PartyFieldPrefix) && strings.EqualFold(s[:len(PartyFieldPrefix)], PartyFieldPrefix) {
		digits = s[len(PartyFieldPrefix):]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false, fmt.Errorf("party %q is not a party code", s)
	}
	code := PartyCode(n)
	if !code.Valid() {
		return 0, false, fmt.Errorf("party %d is outside %d..%d", n, FirstParty, LastParty)
	}
	return code, true, nil
}
