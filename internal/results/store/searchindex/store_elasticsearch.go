package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"

	"zgjedhjet/internal/results/models"
)

// ElasticsearchStore mirrors election records into an Elasticsearch index.
type ElasticsearchStore struct {
	es           *elasticsearch.Client
	index        string
	searchWindow int
}

// Option configures an ElasticsearchStore.
type Option func(*ElasticsearchStore)

// WithSearchWindow bounds the hits returned by Query.
func WithSearchWindow(n int) Option {
	return func(s *ElasticsearchStore) {
		if n > 0 {
			s.searchWindow = n
		}
	}
}

// NewElasticsearch constructs an index adapter for the named index.
func NewElasticsearch(es *elasticsearch.Client, index string, opts ...Option) *ElasticsearchStore {
	s := &ElasticsearchStore{es: es, index: index, searchWindow: DefaultSearchWindow}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ElasticsearchStore) IndexExists(ctx context.Context) (bool, error) {
	res, err := s.es.Indices.Exists([]string{s.index}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("check index exists: %w", err)
	}
	defer drain(res)

	switch res.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, fmt.Errorf("check index exists: %s", res.Status())
	}
}

func (s *ElasticsearchStore) CreateIndex(ctx context.Context, mapping models.IndexMapping) error {
	body, err := json.Marshal(mapping.Body())
	if err != nil {
		return fmt.Errorf("encode index mapping: %w", err)
	}
	res, err := s.es.Indices.Create(s.index,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer drain(res)

	if res.IsError() {
		payload, _ := io.ReadAll(res.Body)
		// lost a creation race with another caller
		if gjson.GetBytes(payload, "error.type").String() == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("create index: %w", responseError(res, payload))
	}
	return nil
}

// BulkIndex sends every document in one bulk request and fails with the first
// per-item error when any document was rejected.
func (s *ElasticsearchStore) BulkIndex(ctx context.Context, docs []models.IndexDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]any{"index": map[string]any{"_index": s.index, "_id": strconv.FormatInt(doc.ID, 10)}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(doc.Source()); err != nil {
			return fmt.Errorf("encode document %d: %w", doc.ID, err)
		}
	}

	res, err := s.es.Bulk(&buf,
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithIndex(s.index),
		s.es.Bulk.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}
	defer drain(res)

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read bulk response: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("bulk index: %w", responseError(res, payload))
	}
	if !gjson.GetBytes(payload, "errors").Bool() {
		return nil
	}

	failed := gjson.GetBytes(payload, "items.#.index.error.reason").Array()
	reason := "unknown item failure"
	if len(failed) > 0 {
		reason = failed[0].String()
	}
	return fmt.Errorf("bulk index: %d of %d documents failed, first: %s", len(failed), len(docs), reason)
}

func (s *ElasticsearchStore) Query(ctx context.Context, filter models.Filter) ([]models.ElectionRecord, error) {
	payload, found, err := s.search(ctx, searchBody(filter, s.searchWindow))
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if !found {
		return nil, nil
	}

	hits := gjson.GetBytes(payload, "hits.hits").Array()
	out := make([]models.ElectionRecord, 0, len(hits))
	for _, hit := range hits {
		r, err := decodeHit(hit)
		if err != nil {
			return nil, fmt.Errorf("decode hit: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *ElasticsearchStore) Exists(ctx context.Context, field models.Field, value string) (bool, error) {
	body, err := json.Marshal(map[string]any{"query": termQuery(field, value)})
	if err != nil {
		return false, fmt.Errorf("encode count query: %w", err)
	}
	res, err := s.es.Count(
		s.es.Count.WithContext(ctx),
		s.es.Count.WithIndex(s.index),
		s.es.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, fmt.Errorf("count %s: %w", field, err)
	}
	defer drain(res)

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return false, fmt.Errorf("read count response: %w", err)
	}
	if res.IsError() {
		if indexMissing(res, payload) {
			return false, nil
		}
		return false, fmt.Errorf("count %s: %w", field, responseError(res, payload))
	}
	return gjson.GetBytes(payload, "count").Int() > 0, nil
}

func (s *ElasticsearchStore) MunicipalityBuckets(ctx context.Context, prefix string, size int) ([]models.Bucket, error) {
	payload, found, err := s.search(ctx, suggestBody(prefix, size))
	if err != nil {
		return nil, fmt.Errorf("suggest municipalities: %w", err)
	}
	if !found {
		return nil, nil
	}

	raw := gjson.GetBytes(payload, "aggregations.municipalities.buckets").Array()
	out := make([]models.Bucket, 0, len(raw))
	for _, b := range raw {
		out = append(out, models.Bucket{Key: b.Get("key").String(), DocCount: b.Get("doc_count").Int()})
	}
	return out, nil
}

// search runs a search request. found is false when the index does not exist.
func (s *ElasticsearchStore) search(ctx context.Context, query map[string]any) ([]byte, bool, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, false, fmt.Errorf("encode search: %w", err)
	}
	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, false, err
	}
	defer drain(res)

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read search response: %w", err)
	}
	if res.IsError() {
		if indexMissing(res, payload) {
			return nil, false, nil
		}
		return nil, false, responseError(res, payload)
	}
	return payload, true, nil
}

func decodeHit(hit gjson.Result) (models.ElectionRecord, error) {
	id, err := strconv.ParseInt(hit.Get("_id").String(), 10, 64)
	if err != nil {
		return models.ElectionRecord{}, fmt.Errorf("document id %q: %w", hit.Get("_id").String(), err)
	}
	src := hit.Get("_source")
	r := models.ElectionRecord{
		ID:           id,
		Category:     src.Get(string(models.FieldCategory)).String(),
		Municipality: src.Get(string(models.FieldMunicipality)).String(),
		VotingCenter: src.Get(string(models.FieldVotingCenter)).String(),
		VotingPlace:  src.Get(string(models.FieldVotingPlace)).String(),
	}
	for _, p := range models.Parties() {
		r.Votes[p.Code.Index()] = int(src.Get(p.Field).Int())
	}
	return r, nil
}

func indexMissing(res *esapi.Response, payload []byte) bool {
	return res.StatusCode == 404 &&
		gjson.GetBytes(payload, "error.type").String() == "index_not_found_exception"
}

func responseError(res *esapi.Response, payload []byte) error {
	reason := gjson.GetBytes(payload, "error.reason").String()
	if reason == "" {
		reason = gjson.GetBytes(payload, "error").String()
	}
	if reason == "" {
		reason = string(payload)
	}
	return fmt.Errorf("%s: %s", res.Status(), reason)
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
