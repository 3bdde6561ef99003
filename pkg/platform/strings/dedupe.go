// Package strings holds small string list helpers shared by config parsing.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each value and drops empties and repeats, keeping the
// first occurrence.
//
//	DedupeAndTrim([]string{" es1:9200", "es2:9200", "es1:9200", ""})
//	// []string{"es1:9200", "es2:9200"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// SplitList splits a sep-separated setting such as a broker or node list.
// A blank input yields nil.
func SplitList(v, sep string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	out := DedupeAndTrim(strings.Split(v, sep))
	if len(out) == 0 {
		return nil
	}
	return out
}
