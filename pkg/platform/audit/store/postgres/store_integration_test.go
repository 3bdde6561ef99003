//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "zgjedhjet/pkg/platform/audit"
	"zgjedhjet/pkg/platform/audit/store/postgres"
	"zgjedhjet/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background(), postgres.Table))
}

func (s *AuditStoreSuite) TestAppendAndListRecent() {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base,
		Action:    string(audit.EventResultsImported),
		Subject:   "batch-1",
		RequestID: "req-1",
		Count:     42,
		Detail:    "results.csv",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base.Add(time.Minute),
		Action:    string(audit.EventIndexMigrated),
		Subject:   "zgjedhjet",
		Count:     42,
	}))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Equal(string(audit.EventIndexMigrated), events[0].Action)
	s.Equal(audit.CategoryData, events[0].Category)
	s.Equal("batch-1", events[1].Subject)
	s.Equal("req-1", events[1].RequestID)
	s.Equal(42, events[1].Count)
	s.Equal("results.csv", events[1].Detail)
	s.True(base.Equal(events[1].Timestamp))
}

func (s *AuditStoreSuite) TestCategoryFollowsAction() {
	ctx := context.Background()
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Category:  audit.CategoryData,
		Timestamp: time.Now(),
		Action:    string(audit.EventResultsImportRejected),
	}))

	events, err := s.store.ListRecent(ctx, 1)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.CategoryOperations, events[0].Category)
}

func (s *AuditStoreSuite) TestListRecentHonoursLimit() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
			Action:    string(audit.EventIndexCreated),
		}))
	}

	events, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Len(events, 2)
}
