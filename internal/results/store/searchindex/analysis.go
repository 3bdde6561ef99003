package searchindex

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// analyze approximates the municipality analyzer: standard tokenization,
// lowercase and ascii folding.
func analyze(text string) []string {
	folded := fold(text)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	return strings.ToLower(out)
}

// matchPhrasePrefix reports whether the analyzed prefix occurs as a phrase in
// the analyzed text, with its last term matched as a prefix.
func matchPhrasePrefix(text, prefix string) bool {
	want := analyze(prefix)
	if len(want) == 0 {
		return false
	}
	have := analyze(text)
	last := len(want) - 1
	for start := 0; start+len(want) <= len(have); start++ {
		ok := true
		for i, term := range want {
			tok := have[start+i]
			if i == last {
				ok = strings.HasPrefix(tok, term)
			} else {
				ok = tok == term
			}
			if !ok {
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
