package engine

import (
	"context"

	"github.com/hautex/visual-fashion-finder/internal/domain"
)

// Engine names accepted by SEARCH_ENGINE.
const (
	NameGoogle        = "google"
	NameElasticsearch = "elasticsearch"
	NameMemory        = "memory"
)

// SearchEngine turns a free-text query into raw search results.
// Implementations may call a web search API, Elasticsearch, or an in-memory
// catalog.
type SearchEngine interface {
	// Name identifies the backend. It prefixes product ids and labels metrics.
	Name() string

	// Search returns at most limit raw items for the query.
	Search(ctx context.Context, query string, limit int) ([]domain.RawItem, error)
}

// Indexer is implemented by engines that hold their own catalog.
type Indexer interface {
	// Index adds or updates a single catalog item.
	Index(ctx context.Context, item domain.CatalogItem) error

	// BulkIndex adds or updates multiple catalog items.
	BulkIndex(ctx context.Context, items []domain.CatalogItem) error

	// Delete removes a catalog item by id. Missing ids are not an error.
	Delete(ctx context.Context, id string) error
}
