package handler

import (
	"fmt"

	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/service/ingest"
)

// ImportResponse is returned by POST /api/results/import.
type ImportResponse struct {
	Success         bool     `json:"success"`
	Message         string   `json:"message"`
	RecordsImported int      `json:"records_imported"`
	Errors          []string `json:"errors"`
}

func toImportResponse(result *ingest.ImportResult) ImportResponse {
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return ImportResponse{
		Success:         result.Success,
		Message:         result.Message,
		RecordsImported: result.RecordsImported,
		Errors:          errs,
	}
}

// MigrationResponse is returned by POST /api/results/search/migrate.
type MigrationResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	RecordsMigrated int    `json:"records_migrated"`
	Error           string `json:"error,omitempty"`
}

func migratedMessage(n int) string {
	if n == 0 {
		return "No data to migrate"
	}
	return fmt.Sprintf("Successfully migrated %d records to Elasticsearch", n)
}

// PartyVotes is one aggregation row.
type PartyVotes struct {
	Party      string `json:"party"`
	Code       int    `json:"code"`
	TotalVotes int64  `json:"total_votes"`
}

// AggregateResponse is returned by both aggregation endpoints.
type AggregateResponse struct {
	Results []PartyVotes `json:"results"`
}

func toAggregateResponse(totals []models.PartyVoteTotal) AggregateResponse {
	resp := AggregateResponse{Results: make([]PartyVotes, 0, len(totals))}
	for _, t := range totals {
		resp.Results = append(resp.Results, PartyVotes{
			Party:      t.Party,
			Code:       int(t.Code),
			TotalVotes: t.TotalVotes,
		})
	}
	return resp
}

// SuggestionStatistic is one entry of GET /api/results/search/statistics.
type SuggestionStatistic struct {
	Municipality    string `json:"municipality"`
	SuggestionCount int64  `json:"suggestion_count"`
}

func toStatistics(counts []models.SuggestionCount) []SuggestionStatistic {
	out := make([]SuggestionStatistic, 0, len(counts))
	for _, c := range counts {
		out = append(out, SuggestionStatistic{
			Municipality:    c.Municipality,
			SuggestionCount: int64(c.Count),
		})
	}
	return out
}
