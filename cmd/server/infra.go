package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"zgjedhjet/internal/platform/config"
	"zgjedhjet/internal/platform/elasticsearch"
	"zgjedhjet/internal/platform/postgres"
	"zgjedhjet/internal/platform/redis"
	"zgjedhjet/internal/results/ports"
	"zgjedhjet/internal/results/store/counter"
	"zgjedhjet/internal/results/store/record"
	"zgjedhjet/internal/results/store/searchindex"
	"zgjedhjet/pkg/platform/audit/publisher"
	kafkastore "zgjedhjet/pkg/platform/audit/store/kafka"
	auditmemory "zgjedhjet/pkg/platform/audit/store/memory"
	auditpostgres "zgjedhjet/pkg/platform/audit/store/postgres"
)

const auditBufferSize = 256

// infrastructure holds the stores and the audit publisher. Each backend falls
// back to its in-memory store when it is not configured.
type infrastructure struct {
	records ports.CanonicalStore
	index   ports.SearchIndex
	counter ports.PopularityCounter
	audit   *publisher.Publisher
	db      *sql.DB
	closers []func()
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infrastructure, error) {
	infra := &infrastructure{}
	ok := false
	defer func() {
		if !ok {
			infra.Close()
		}
	}()

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if db != nil {
		store := record.NewPostgres(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		infra.records = store
		infra.db = db
		infra.closers = append(infra.closers, func() { _ = db.Close() })
		log.Info("canonical store ready", "backend", "postgres")
	} else {
		infra.records = record.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory canonical store")
	}

	es, err := elasticsearch.New(ctx, cfg.Elasticsearch)
	if err != nil {
		return nil, err
	}
	if es != nil {
		infra.index = searchindex.NewElasticsearch(es, cfg.Elasticsearch.Index,
			searchindex.WithSearchWindow(cfg.Elasticsearch.SearchWindow))
		log.Info("search index ready", "backend", "elasticsearch", "index", cfg.Elasticsearch.Index)
	} else {
		index := searchindex.NewInMemory()
		index.SetSearchWindow(cfg.Elasticsearch.SearchWindow)
		infra.index = index
		log.Warn("ELASTICSEARCH_URL not set, using in-memory search index")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		infra.counter = counter.NewRedis(rc.Client, counter.WithKey(cfg.Suggestions.CounterKey))
		infra.closers = append(infra.closers, func() { _ = rc.Close() })
		log.Info("suggestion counter ready", "backend", "redis", "key", cfg.Suggestions.CounterKey)
	} else {
		infra.counter = counter.NewInMemory()
		log.Warn("REDIS_URL not set, using in-memory suggestion counter")
	}

	if err := infra.connectAudit(ctx, cfg.Kafka, log); err != nil {
		return nil, err
	}

	ok = true
	return infra, nil
}

func (i *infrastructure) connectAudit(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) error {
	if len(cfg.Brokers) == 0 {
		return i.connectLocalAudit(ctx, log)
	}

	client, err := kafkastore.NewClient(cfg.Brokers, cfg.ClientID)
	if err != nil {
		return err
	}
	i.closers = append(i.closers, client.Close)
	if err := kafkastore.EnsureTopic(ctx, client, cfg.AuditTopic, 1, 1); err != nil {
		return fmt.Errorf("ensure audit topic: %w", err)
	}
	i.audit = publisher.NewPublisher(kafkastore.New(client, cfg.AuditTopic),
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	i.closers = append(i.closers, i.audit.Close)
	log.Info("audit sink ready", "backend", "kafka", "topic", cfg.AuditTopic)
	return nil
}

// connectLocalAudit keeps audit events in PostgreSQL when it is configured
// and in memory otherwise.
func (i *infrastructure) connectLocalAudit(ctx context.Context, log *slog.Logger) error {
	if i.db == nil {
		i.audit = publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithLogger(log))
		i.closers = append(i.closers, i.audit.Close)
		return nil
	}

	store := auditpostgres.New(i.db)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	i.audit = publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	i.closers = append(i.closers, i.audit.Close)
	log.Info("audit sink ready", "backend", "postgres", "table", auditpostgres.Table)
	return nil
}

// Close releases resources in reverse acquisition order, so the publisher
// drains before the Kafka client goes away.
func (i *infrastructure) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
	i.closers = nil
}
