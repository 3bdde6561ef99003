package searchindex

import "zgjedhjet/internal/results/models"

// DefaultSearchWindow bounds the number of hits a filtered query returns.
const DefaultSearchWindow = 10000

// termField is the index field used for exact matching on a filter field.
func termField(f models.Field) string {
	if f == models.FieldMunicipality {
		return models.MunicipalityKeyword
	}
	return string(f)
}

func termQuery(f models.Field, value string) map[string]any {
	return map[string]any{"term": map[string]any{termField(f): value}}
}

// filterQuery ANDs every active constraint as a non-scoring term filter.
func filterQuery(filter models.Filter) map[string]any {
	constraints := filter.Constraints()
	if len(constraints) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	terms := make([]any, 0, len(constraints))
	for _, c := range constraints {
		terms = append(terms, termQuery(c.Field, c.Value))
	}
	return map[string]any{"bool": map[string]any{"filter": terms}}
}

func searchBody(filter models.Filter, window int) map[string]any {
	return map[string]any{
		"size":  window,
		"query": filterQuery(filter),
		"sort":  []any{map[string]any{"_doc": "asc"}},
	}
}

func suggestBody(prefix string, size int) map[string]any {
	return map[string]any{
		"size": 0,
		"query": map[string]any{
			"match_phrase_prefix": map[string]any{
				string(models.FieldMunicipality): prefix,
			},
		},
		"aggs": map[string]any{
			"municipalities": map[string]any{
				"terms": map[string]any{
					"field": models.MunicipalityKeyword,
					"size":  size,
				},
			},
		},
	}
}
