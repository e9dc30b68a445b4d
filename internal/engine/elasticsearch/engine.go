package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	"github.com/hautex/visual-fashion-finder/internal/engine"
	"github.com/hautex/visual-fashion-finder/pkg/database"
)

// Engine is an Elasticsearch-backed catalog search.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var (
	_ engine.SearchEngine = (*Engine)(nil)
	_ engine.Indexer      = (*Engine)(nil)
)

// searchFields are queried with per-field boosts.
var searchFields = []string{"title^3", "brand^2", "category^2", "color^2", "tags", "description"}

type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Hits []struct {
			Source domain.CatalogItem `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine connected to esURL and makes sure the catalog index
// exists. An empty indexName falls back to DefaultIndexName.
func New(ctx context.Context, esURL, indexName string, logger *slog.Logger) (*Engine, error) {
	return NewWithTransport(ctx, esURL, indexName, nil, logger)
}

// NewWithTransport is New with a custom HTTP transport. A nil transport uses
// the client default.
func NewWithTransport(ctx context.Context, esURL, indexName string, transport http.RoundTripper, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}

	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return e, nil
}

// Name returns "elasticsearch".
func (e *Engine) Name() string { return engine.NameElasticsearch }

// IndexName returns the name of the catalog index.
func (e *Engine) IndexName() string { return e.indexName }

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (e *Engine) ensureIndex(ctx context.Context) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemElasticsearch, "ensure_index", e.indexName)
	defer func() { end(err) }()

	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		e.logger.Info("elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// Index adds or updates a single catalog item.
func (e *Engine) Index(ctx context.Context, item domain.CatalogItem) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemElasticsearch, "index", e.indexName+"/"+item.ID)
	defer func() { end(err) }()

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal item: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(item.ID),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch index", res)
	}

	e.logger.Debug("indexed catalog item", slog.String("id", item.ID), slog.String("title", item.Title))
	return nil
}

// Delete removes an item by id. A missing document is not an error.
func (e *Engine) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemElasticsearch, "delete", e.indexName+"/"+id)
	defer func() { end(err) }()

	res, err := e.client.Delete(e.indexName, id, e.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete", res)
	}

	e.logger.Debug("deleted catalog item", slog.String("id", id))
	return nil
}

// Search runs a boosted multi_match over the catalog text fields and maps
// each hit onto a RawItem.
func (e *Engine) Search(ctx context.Context, query string, limit int) (_ []domain.RawItem, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemElasticsearch, "search", query)
	defer func() { end(err) }()

	if limit <= 0 {
		limit = 10
	}

	data, err := json.Marshal(buildSearchQuery(query, limit))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch search", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	items := make([]domain.RawItem, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		items = append(items, hit.Source.RawItem())
	}

	e.logger.DebugContext(ctx, "elasticsearch search completed",
		slog.String("query", query),
		slog.Int("results", len(items)),
		slog.Int("took_ms", esResp.Took),
	)
	return items, nil
}

// buildSearchQuery returns the query DSL for a free-text catalog search.
// Any matching token is enough; more matches score higher.
func buildSearchQuery(query string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":         query,
				"fields":        searchFields,
				"type":          "most_fields",
				"operator":      "or",
				"fuzziness":     "AUTO",
				"prefix_length": 1,
			},
		},
		"size": limit,
		"sort": []interface{}{
			map[string]interface{}{"_score": "desc"},
			map[string]interface{}{"id": "asc"},
		},
	}
}

// DeleteIndex removes the catalog index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res)
	}

	e.logger.Info("elasticsearch index deleted", slog.String("index", e.indexName))
	return nil
}

// BulkIndex adds or updates items through the bulk NDJSON API.
func (e *Engine) BulkIndex(ctx context.Context, items []domain.CatalogItem) (err error) {
	if len(items) == 0 {
		return nil
	}

	ctx, end := database.TraceQuery(ctx, database.SystemElasticsearch, "bulk", fmt.Sprintf("%s (%d docs)", e.indexName, len(items)))
	defer func() { end(err) }()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range items {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": e.indexName,
				"_id":    items[i].ID,
			},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(items[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk index", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var msgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				msgs = append(msgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(msgs, "; "))
	}

	e.logger.Info("bulk indexed catalog items", slog.Int("count", len(items)))
	return nil
}

func responseError(op string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	var errResp esErrorResponse
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}
