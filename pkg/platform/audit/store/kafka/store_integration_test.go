//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "zgjedhjet/pkg/platform/audit"
	"zgjedhjet/pkg/platform/audit/store/kafka"
	"zgjedhjet/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaStoreSuite) TestAppendIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	topic := "results.audit.it"

	client, err := kafka.NewClient(s.brokers, "zgjedhjet-test")
	s.Require().NoError(err)
	defer client.Close()

	s.Require().NoError(kafka.EnsureTopic(ctx, client, topic, 1, 1))
	// a second call sees the existing topic
	s.Require().NoError(kafka.EnsureTopic(ctx, client, topic, 1, 1))

	store := kafka.New(client, topic)
	s.Require().NoError(store.Append(ctx, audit.Event{
		Timestamp: time.Now(),
		Action:    string(audit.EventIndexMigrated),
		Subject:   "zgjedhjet",
		Count:     7,
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(records[0].Value, &body))
	s.Equal("search_index_migrated", body["action"])
	s.Equal("data", body["category"])
	s.Equal([]byte("zgjedhjet"), records[0].Key)
}
