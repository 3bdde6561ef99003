//go:build integration

package record_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"zgjedhjet/internal/results/models"
	"zgjedhjet/internal/results/store/record"
	"zgjedhjet/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *record.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = record.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), record.Table))
}

func (s *PostgresStoreSuite) seed(records ...models.ElectionRecord) {
	n, err := s.store.BulkInsert(context.Background(), records)
	s.Require().NoError(err)
	s.Require().Equal(len(records), n)
}

func rec(category, municipality, center, place string, first, last int) models.ElectionRecord {
	r := models.ElectionRecord{Category: category, Municipality: municipality, VotingCenter: center, VotingPlace: place}
	r.Votes[0] = first
	r.Votes[models.PartyCount-1] = last
	return r
}

func (s *PostgresStoreSuite) TestBulkInsertRoundTripsAllColumns() {
	ctx := context.Background()
	s.seed(rec("Kuvend", "Ferizaj", "C1", "P1", 12, 99))

	got, err := s.store.Query(ctx, models.Filter{})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(int64(1), got[0].ID)
	s.Equal("Ferizaj", got[0].Municipality)
	s.Equal(12, got[0].Votes[0])
	s.Equal(99, got[0].Votes[models.PartyCount-1])
}

func (s *PostgresStoreSuite) TestBulkInsertEmptyIsNoop() {
	n, err := s.store.BulkInsert(context.Background(), nil)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *PostgresStoreSuite) TestQueryFiltersAndOrdersByID() {
	ctx := context.Background()
	s.seed(
		rec("Kuvend", "Ferizaj", "C1", "P1", 1, 0),
		rec("Kuvend", "Peja", "C2", "P2", 2, 0),
		rec("Komuna", "Ferizaj", "C1", "P3", 3, 0),
	)

	got, err := s.store.Query(ctx, models.Filter{Municipality: "Ferizaj", Category: "ALL"})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Less(got[0].ID, got[1].ID)

	got, err = s.store.Query(ctx, models.Filter{Municipality: "Ferizaj", Category: "Komuna"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("P3", got[0].VotingPlace)
}

func (s *PostgresStoreSuite) TestExists() {
	ctx := context.Background()
	s.seed(rec("Kuvend", "Peja", "C7", "P7", 0, 0))

	ok, err := s.store.Exists(ctx, models.FieldVotingCenter, "C7")
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.Exists(ctx, models.FieldVotingPlace, "nope")
	s.Require().NoError(err)
	s.False(ok)
}

func (s *PostgresStoreSuite) TestConcurrentImportsKeepDistinctIDs() {
	ctx := context.Background()
	const batches = 8

	var wg sync.WaitGroup
	for i := 0; i < batches; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.BulkInsert(ctx, []models.ElectionRecord{
				rec("Kuvend", "Peja", "C1", "P1", 1, 1),
				rec("Kuvend", "Peja", "C1", "P2", 1, 1),
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.Query(ctx, models.Filter{})
	s.Require().NoError(err)
	s.Len(got, batches*2)
	seen := map[int64]bool{}
	for _, r := range got {
		s.False(seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
	}
}
