// Package elasticsearch builds the search index client.
package elasticsearch

import (
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"

	"zgjedhjet/internal/platform/config"
	"zgjedhjet/pkg/platform/sentinel"
)

// New creates an Elasticsearch client and checks the cluster answers.
// Returns nil if no addresses are configured.
func New(ctx context.Context, cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	if len(cfg.Addresses) == 0 {
		return nil, nil
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info failed: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info failed: %w: %s", sentinel.ErrUnavailable, res.Status())
	}
	return client, nil
}
