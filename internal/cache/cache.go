// Package cache memoizes search engine results in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	"github.com/hautex/visual-fashion-finder/internal/engine"
	"github.com/hautex/visual-fashion-finder/pkg/slug"
)

const keyPrefix = "search:"

// Cache outcomes recorded by lookupsTotal.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

var lookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "fashion_finder_search_cache_lookups_total",
		Help: "Search cache lookups by engine and result",
	},
	[]string{"engine", "result"},
)

// Engine wraps a SearchEngine with a Redis read-through cache. Cache
// failures are logged and fall through to the wrapped engine. Engine errors
// are never cached.
type Engine struct {
	next   engine.SearchEngine
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

// New wraps next with a cache whose entries expire after ttl.
func New(next engine.SearchEngine, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Name returns the wrapped engine's name.
func (e *Engine) Name() string { return e.next.Name() }

// Key returns the cache key for a query. Queries differing only in case,
// punctuation or accents share a key.
func Key(engineName, query string, limit int) string {
	return keyPrefix + engineName + ":" + strconv.Itoa(limit) + ":" + slug.Generate(query)
}

// Search serves from Redis when possible, otherwise queries the wrapped
// engine and stores its answer.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]domain.RawItem, error) {
	key := Key(e.next.Name(), query, limit)

	items, err := e.get(ctx, key)
	switch {
	case err == nil:
		lookupsTotal.WithLabelValues(e.next.Name(), resultHit).Inc()
		e.logger.DebugContext(ctx, "search cache hit", slog.String("key", key))
		return items, nil
	case errors.Is(err, redis.Nil):
		lookupsTotal.WithLabelValues(e.next.Name(), resultMiss).Inc()
	default:
		lookupsTotal.WithLabelValues(e.next.Name(), resultError).Inc()
		e.logger.WarnContext(ctx, "search cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	items, err = e.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if err := e.set(ctx, key, items); err != nil {
		e.logger.WarnContext(ctx, "search cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return items, nil
}

func (e *Engine) get(ctx context.Context, key string) ([]domain.RawItem, error) {
	data, err := e.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("redis get search results: %w", err)
	}

	var items []domain.RawItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal search results: %w", err)
	}
	return items, nil
}

func (e *Engine) set(ctx context.Context, key string, items []domain.RawItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal search results: %w", err)
	}
	if err := e.client.Set(ctx, key, data, e.ttl).Err(); err != nil {
		return fmt.Errorf("redis set search results: %w", err)
	}
	return nil
}
