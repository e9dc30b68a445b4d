package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	"github.com/hautex/visual-fashion-finder/internal/engine"
)

// Engine is an in-memory catalog search. Items score one point per query
// token found in their text; items matching no token are skipped.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu    sync.RWMutex
	items map[string]domain.CatalogItem
}

var (
	_ engine.SearchEngine = (*Engine)(nil)
	_ engine.Indexer      = (*Engine)(nil)
)

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{
		items: make(map[string]domain.CatalogItem),
	}
}

// NewWithItems creates an engine preloaded with items.
func NewWithItems(items []domain.CatalogItem) *Engine {
	e := New()
	for _, it := range items {
		e.items[it.ID] = it
	}
	return e
}

// Name returns "memory".
func (e *Engine) Name() string { return engine.NameMemory }

// Index adds or updates a single item.
func (e *Engine) Index(_ context.Context, item domain.CatalogItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items[item.ID] = item
	return nil
}

// BulkIndex adds or updates multiple items.
func (e *Engine) BulkIndex(_ context.Context, items []domain.CatalogItem) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range items {
		e.items[items[i].ID] = items[i]
	}
	return nil
}

// Delete removes an item by id.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.items, id)
	return nil
}

// Len returns the number of indexed items.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

type scored struct {
	item  domain.CatalogItem
	score int
}

// Search ranks items by matched query tokens, then by id for stable output.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]domain.RawItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 || limit <= 0 {
		return []domain.RawItem{}, nil
	}

	e.mu.RLock()
	matched := make([]scored, 0, len(e.items))
	for _, it := range e.items {
		if s := score(it.SearchText(), tokens); s > 0 {
			matched = append(matched, scored{item: it, score: s})
		}
	}
	e.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].item.ID < matched[j].item.ID
	})

	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]domain.RawItem, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.item.RawItem())
	}
	return out, nil
}

func score(text string, tokens []string) int {
	words := strings.Fields(text)
	n := 0
	for _, tok := range tokens {
		for _, w := range words {
			if w == tok {
				n++
				break
			}
		}
	}
	return n
}
