package elasticsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zgjedhjet/internal/platform/config"
	"zgjedhjet/pkg/platform/sentinel"
)

func TestNewWithoutAddressesReturnsNil(t *testing.T) {
	client, err := New(context.Background(), config.ElasticsearchConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewChecksClusterInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":{"number":"8.15.0"},"tagline":"You Know, for Search"}`))
	}))
	defer srv.Close()

	client, err := New(context.Background(), config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestNewReportsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
	}))
	defer srv.Close()

	_, err := New(context.Background(), config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
