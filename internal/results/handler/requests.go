package handler

import (
	"net/url"
	"strconv"
	"strings"

	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/service/aggregate"
	dErrors "zgjedhjet/pkg/domain-errors"
)

// Query parameter names.
const (
	paramCategory     = "category"
	paramMunicipality = "municipality"
	paramVotingCenter = "voting_center"
	paramVotingPlace  = "voting_place"
	paramParty        = "party"
	paramQuery        = "query"
	paramTop          = "top"
)

// AggregateRequest holds the filter parameters of an aggregation request.
type AggregateRequest struct {
	Category     string
	Municipality string
	VotingCenter string
	VotingPlace  string
	Party        string
}

func aggregateRequestFrom(values url.Values) AggregateRequest {
	return AggregateRequest{
		Category:     strings.TrimSpace(values.Get(paramCategory)),
		Municipality: strings.TrimSpace(values.Get(paramMunicipality)),
		VotingCenter: strings.TrimSpace(values.Get(paramVotingCenter)),
		VotingPlace:  strings.TrimSpace(values.Get(paramVotingPlace)),
		Party:        strings.TrimSpace(values.Get(paramParty)),
	}
}

// Query validates the request and builds the aggregation query for source.
func (r AggregateRequest) Query(source aggregate.Source) (aggregate.Query, error) {
	q := aggregate.Query{
		Filter: models.Filter{
			Category:     r.Category,
			Municipality: r.Municipality,
			VotingCenter: r.VotingCenter,
			VotingPlace:  r.VotingPlace,
		},
		Source: source,
	}
	code, set, err := models.ParsePartyCode(r.Party)
	if err != nil {
		return aggregate.Query{}, dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
	}
	if set {
		q.Party = &code
	}
	return q, nil
}

// parseTop reads the top parameter. Absent means def; anything outside 1..max
// is rejected.
func parseTop(values url.Values, def, max int) (int, error) {
	raw := strings.TrimSpace(values.Get(paramTop))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "top must be an integer")
	}
	if n < 1 || n > max {
		return 0, dErrors.New(dErrors.CodeBadRequest, "top must be between 1 and "+strconv.Itoa(max))
	}
	return n, nil
}
