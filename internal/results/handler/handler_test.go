package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"zgjedhjet/internal/results/handler/mocks"
	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/service/aggregate"
	"zgjedhjet/internal/results/service/ingest"
	dErrors "zgjedhjet/pkg/domain-errors"
	"zgjedhjet/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/results-mocks.go -package=mocks
type ResultsHandlerSuite struct {
	suite.Suite
}

func TestResultsHandlerSuite(t *testing.T) {
	suite.Run(t, new(ResultsHandlerSuite))
}

type testHandler struct {
	router     chi.Router
	importer   *mocks.MockImporter
	migrator   *mocks.MockMigrator
	aggregator *mocks.MockAggregator
	suggester  *mocks.MockSuggester
}

func newTestHandler(t *testing.T, cfg Config) *testHandler {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	th := &testHandler{
		importer:   mocks.NewMockImporter(ctrl),
		migrator:   mocks.NewMockMigrator(ctrl),
		aggregator: mocks.NewMockAggregator(ctrl),
		suggester:  mocks.NewMockSuggester(ctrl),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(th.importer, th.migrator, th.aggregator, th.suggester, logger, cfg)
	r := chi.NewRouter()
	h.Register(r)
	th.router = r
	return th
}

const sampleCSV = "header\nKat,Prishtinë,C1,P1,1,2,3\n"

func (s *ResultsHandlerSuite) TestImport() {
	s.Run("passes the uploaded file to the importer", func() {
		th := newTestHandler(s.T(), Config{})
		th.importer.EXPECT().Ingest(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, upload ingest.Upload) (*ingest.ImportResult, error) {
				assert.Equal(s.T(), "results.csv", upload.Filename)
				assert.Equal(s.T(), int64(len(sampleCSV)), upload.Size)
				body, err := io.ReadAll(upload.Body)
				require.NoError(s.T(), err)
				assert.Equal(s.T(), sampleCSV, string(body))
				return &ingest.ImportResult{
					Success:         true,
					Message:         "Successfully imported 1 records",
					RecordsImported: 1,
					Errors:          []string{"Line 3: insufficient columns"},
				}, nil
			})

		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/results/import", "file", "results.csv", []byte(sampleCSV))
		rr := testutil.DoRequest(th.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[ImportResponse](s.T(), rr)
		assert.True(s.T(), resp.Success)
		assert.Equal(s.T(), 1, resp.RecordsImported)
		assert.Equal(s.T(), "Successfully imported 1 records", resp.Message)
		assert.Equal(s.T(), []string{"Line 3: insufficient columns"}, resp.Errors)
	})

	s.Run("no valid records is still a 200 with an empty error list", func() {
		th := newTestHandler(s.T(), Config{})
		th.importer.EXPECT().Ingest(gomock.Any(), gomock.Any()).
			Return(&ingest.ImportResult{Message: "No valid records found in CSV"}, nil)

		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/results/import", "file", "results.csv", []byte("header\n"))
		rr := testutil.DoRequest(th.router, req)

		testutil.AssertStatusOK(s.T(), rr)
		assert.JSONEq(s.T(), `{"success":false,"message":"No valid records found in CSV","records_imported":0,"errors":[]}`, rr.Body.String())
	})

	s.Run("missing file field reaches the importer as an empty upload", func() {
		th := newTestHandler(s.T(), Config{})
		verr := &ingest.ValidationError{Message: "No file uploaded", Reason: "File is required"}
		th.importer.EXPECT().Ingest(gomock.Any(), ingest.Upload{}).
			Return(nil, dErrors.Wrap(verr, dErrors.CodeValidation, verr.Message))

		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/results/import", "other", "results.csv", []byte(sampleCSV))
		rr := testutil.DoRequest(th.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		resp := testutil.UnmarshalResponse[ImportResponse](s.T(), rr)
		assert.False(s.T(), resp.Success)
		assert.Equal(s.T(), "No file uploaded", resp.Message)
		assert.Equal(s.T(), []string{"File is required"}, resp.Errors)
	})

	s.Run("non multipart body is treated as missing file", func() {
		th := newTestHandler(s.T(), Config{})
		verr := &ingest.ValidationError{Message: "No file uploaded", Reason: "File is required"}
		th.importer.EXPECT().Ingest(gomock.Any(), ingest.Upload{}).
			Return(nil, dErrors.Wrap(verr, dErrors.CodeValidation, verr.Message))

		rr := testutil.DoRequest(th.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/results/import", map[string]string{}))

		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("internal failure returns 500 without the cause", func() {
		th := newTestHandler(s.T(), Config{})
		th.importer.EXPECT().Ingest(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "Internal server error during import"))

		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/results/import", "file", "results.csv", []byte(sampleCSV))
		rr := testutil.DoRequest(th.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		assert.NotContains(s.T(), rr.Body.String(), "connection refused")
		resp := testutil.UnmarshalResponse[ImportResponse](s.T(), rr)
		assert.Equal(s.T(), "Internal server error during import", resp.Message)
		assert.Equal(s.T(), []string{"internal_error"}, resp.Errors)
	})

	s.Run("upload over the limit is rejected before import", func() {
		th := newTestHandler(s.T(), Config{MaxUploadBytes: 1024})
		big := []byte(strings.Repeat("x", 8192))

		req := testutil.NewMultipartRequest(s.T(), http.MethodPost, "/api/results/import", "file", "results.csv", big)
		rr := testutil.DoRequest(th.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusRequestEntityTooLarge)
		resp := testutil.UnmarshalResponse[ImportResponse](s.T(), rr)
		assert.Equal(s.T(), "File too large", resp.Message)
	})
}

func (s *ResultsHandlerSuite) TestAggregate() {
	s.Run("canonical route builds the filter and party", func() {
		th := newTestHandler(s.T(), Config{})
		party := models.PartyCode(112)
		want := aggregate.Query{
			Filter: models.Filter{
				Category:     "all",
				Municipality: "Prishtinë",
				VotingCenter: "C1",
			},
			Party:  &party,
			Source: aggregate.SourceCanonical,
		}
		th.aggregator.EXPECT().Aggregate(gomock.Any(), want).
			Return([]models.PartyVoteTotal{{Code: 112, Party: "partia112", TotalVotes: 42}}, nil)

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet,
			"/api/results?category=all&municipality=Prishtin%C3%AB&voting_center=C1&party=partia112"))

		testutil.AssertStatusOK(s.T(), rr)
		assert.JSONEq(s.T(), `{"results":[{"party":"partia112","code":112,"total_votes":42}]}`, rr.Body.String())
	})

	s.Run("index route without party asks for every party", func() {
		th := newTestHandler(s.T(), Config{})
		th.aggregator.EXPECT().Aggregate(gomock.Any(), aggregate.Query{Source: aggregate.SourceIndex}).
			Return([]models.PartyVoteTotal{}, nil)

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results/search"))

		testutil.AssertStatusOK(s.T(), rr)
		assert.JSONEq(s.T(), `{"results":[]}`, rr.Body.String())
	})

	s.Run("invalid party is a bad request", func() {
		th := newTestHandler(s.T(), Config{})

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results?party=999"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("missing voting place is not found", func() {
		th := newTestHandler(s.T(), Config{})
		th.aggregator.EXPECT().Aggregate(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "Voting place 'P9' not found"))

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results/search?voting_place=P9"))

		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		body := testutil.UnmarshalErrorResponse(s.T(), rr)
		assert.Equal(s.T(), "not_found", body["error"])
		assert.Equal(s.T(), "Voting place 'P9' not found", body["error_description"])
	})

	s.Run("store fault is internal", func() {
		th := newTestHandler(s.T(), Config{})
		th.aggregator.EXPECT().Aggregate(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("timeout"), dErrors.CodeInternal, "query records"))

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	})
}

func (s *ResultsHandlerSuite) TestMigrate() {
	s.Run("reports migrated count", func() {
		th := newTestHandler(s.T(), Config{})
		th.migrator.EXPECT().Migrate(gomock.Any()).Return(5, nil)

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/results/search/migrate"))

		testutil.AssertStatusOK(s.T(), rr)
		assert.JSONEq(s.T(), `{"success":true,"message":"Successfully migrated 5 records to Elasticsearch","records_migrated":5}`, rr.Body.String())
	})

	s.Run("empty canonical store", func() {
		th := newTestHandler(s.T(), Config{})
		th.migrator.EXPECT().Migrate(gomock.Any()).Return(0, nil)

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/results/search/migrate"))

		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[MigrationResponse](s.T(), rr)
		assert.True(s.T(), resp.Success)
		assert.Equal(s.T(), "No data to migrate", resp.Message)
	})

	s.Run("index failure", func() {
		th := newTestHandler(s.T(), Config{})
		th.migrator.EXPECT().Migrate(gomock.Any()).
			Return(0, dErrors.Wrap(errors.New("es down"), dErrors.CodeInternal, "Failed to create Elasticsearch index"))

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/results/search/migrate"))

		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		resp := testutil.UnmarshalResponse[MigrationResponse](s.T(), rr)
		assert.False(s.T(), resp.Success)
		assert.Equal(s.T(), "Failed to create Elasticsearch index", resp.Message)
		assert.Equal(s.T(), "internal_error", resp.Error)
	})
}

func (s *ResultsHandlerSuite) TestSuggest() {
	s.Run("uses the default top", func() {
		th := newTestHandler(s.T(), Config{})
		th.suggester.EXPECT().Suggest(gomock.Any(), "pri", 10).Return([]string{"Prishtinë", "Prizren"})

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results/search/suggest?query=pri"))

		testutil.AssertStatusOK(s.T(), rr)
		assert.JSONEq(s.T(), `["Prishtinë","Prizren"]`, rr.Body.String())
	})

	s.Run("nil result encodes as an empty array", func() {
		th := newTestHandler(s.T(), Config{})
		th.suggester.EXPECT().Suggest(gomock.Any(), "", 3).Return(nil)

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results/search/suggest?top=3"))

		testutil.AssertStatusOK(s.T(), rr)
		assert.JSONEq(s.T(), `[]`, rr.Body.String())
	})

	s.Run("top out of range", func() {
		th := newTestHandler(s.T(), Config{MaxTop: 50})

		for _, top := range []string{"0", "-1", "51", "ten"} {
			rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results/search/suggest?query=pri&top="+top))
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
		}
	})
}

func (s *ResultsHandlerSuite) TestStatistics() {
	s.Run("lists counters", func() {
		th := newTestHandler(s.T(), Config{})
		th.suggester.EXPECT().TopSuggested(gomock.Any(), 2).Return([]models.SuggestionCount{
			{Municipality: "Prishtinë", Count: 4},
			{Municipality: "Pejë", Count: 1},
		}, nil)

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results/search/statistics?top=2"))

		testutil.AssertStatusOK(s.T(), rr)
		assert.JSONEq(s.T(), `[{"municipality":"Prishtinë","suggestion_count":4},{"municipality":"Pejë","suggestion_count":1}]`, rr.Body.String())
	})

	s.Run("counter store failure", func() {
		th := newTestHandler(s.T(), Config{})
		th.suggester.EXPECT().TopSuggested(gomock.Any(), 10).
			Return(nil, dErrors.Wrap(errors.New("redis down"), dErrors.CodeInternal, "read suggestion statistics"))

		rr := testutil.DoRequest(th.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/results/search/statistics"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	})
}

func TestParseTop(t *testing.T) {
	testutil.Given(t, "no top parameter", func(t *testing.T) {
		testutil.Then(t, "the default applies", func(t *testing.T) {
			top, err := parseTop(map[string][]string{}, 10, 1000)
			require.NoError(t, err)
			assert.Equal(t, 10, top)
		})
	})

	testutil.Given(t, "a top at the upper bound", func(t *testing.T) {
		testutil.Then(t, "it is accepted", func(t *testing.T) {
			top, err := parseTop(map[string][]string{"top": {"1000"}}, 10, 1000)
			require.NoError(t, err)
			assert.Equal(t, 1000, top)
		})
	})

	testutil.Given(t, "a top above the bound", func(t *testing.T) {
		testutil.Then(t, "it is a bad request", func(t *testing.T) {
			_, err := parseTop(map[string][]string{"top": {"1001"}}, 10, 1000)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		})
	})
}

func TestAggregateRequestParty(t *testing.T) {
	for _, raw := range []string{"", "all", "ALL"} {
		q, err := AggregateRequest{Party: raw}.Query(aggregate.SourceCanonical)
		require.NoError(t, err)
		assert.Nil(t, q.Party, raw)
	}

	q, err := AggregateRequest{Party: "138"}.Query(aggregate.SourceIndex)
	require.NoError(t, err)
	require.NotNil(t, q.Party)
	assert.Equal(t, models.PartyCode(138), *q.Party)
	assert.Equal(t, aggregate.SourceIndex, q.Source)
}
