// Package google searches products through the Custom Search JSON API.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	"github.com/hautex/visual-fashion-finder/internal/engine"
	"github.com/hautex/visual-fashion-finder/pkg/httpclient"
	"github.com/hautex/visual-fashion-finder/pkg/tracing"
)

// ServiceName identifies the search API in errors, breaker metrics and logs.
const ServiceName = "google-search"

// DefaultBaseURL is the Custom Search JSON API endpoint.
const DefaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// maxResults is the largest page the API serves.
const maxResults = 10

const maxResponseBytes = 4 << 20

// ErrNotConfigured is returned by Search when the API key or engine id is
// missing. No request is made.
var ErrNotConfigured = errors.New("google search: api key or search engine id not configured")

// Getter issues GET requests. *httpclient.CircuitBreakerClient satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// Config holds the Custom Search credentials.
type Config struct {
	BaseURL  string
	APIKey   string
	EngineID string
}

// Configured reports whether both credentials are set.
func (c Config) Configured() bool {
	return c.APIKey != "" && c.EngineID != ""
}

// Engine is a SearchEngine backed by the Custom Search JSON API.
type Engine struct {
	cfg    Config
	http   Getter
	logger *slog.Logger
}

var _ engine.SearchEngine = (*Engine)(nil)

// New creates a Google engine. A missing BaseURL defaults to DefaultBaseURL.
func New(cfg Config, getter Getter, logger *slog.Logger) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Engine{cfg: cfg, http: getter, logger: logger}
}

// Name returns "google".
func (e *Engine) Name() string { return engine.NameGoogle }

type searchResponse struct {
	Items []item `json:"items"`
}

type item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	DisplayLink string `json:"displayLink"`
	Pagemap     struct {
		CSEImage     []domain.ImageRef `json:"cse_image"`
		CSEThumbnail []domain.ImageRef `json:"cse_thumbnail"`
	} `json:"pagemap"`
	Image struct {
		ThumbnailLink string `json:"thumbnailLink"`
	} `json:"image"`
}

func (it item) raw() domain.RawItem {
	return domain.RawItem{
		Title:         it.Title,
		Link:          it.Link,
		DisplayLink:   it.DisplayLink,
		CSEImage:      it.Pagemap.CSEImage,
		CSEThumbnail:  it.Pagemap.CSEThumbnail,
		ThumbnailLink: it.Image.ThumbnailLink,
	}
}

// Search sends key, cx, q and num to the API and maps each item onto a
// RawItem. A response without items yields an empty slice.
func (e *Engine) Search(ctx context.Context, query string, limit int) (_ []domain.RawItem, err error) {
	if !e.cfg.Configured() {
		return nil, ErrNotConfigured
	}
	if limit <= 0 || limit > maxResults {
		limit = maxResults
	}

	ctx, span := tracing.StartSpan(ctx, "engine/google", "google.search",
		attribute.String("peer.service", ServiceName),
		attribute.String("search.query", query),
		attribute.Int("search.limit", limit),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	u, err := url.Parse(e.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", ServiceName, err)
	}
	params := url.Values{}
	params.Set("key", e.cfg.APIKey)
	params.Set("cx", e.cfg.EngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit))
	u.RawQuery = params.Encode()

	resp, err := e.http.Get(ctx, u.String())
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", ServiceName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpclient.ParseResponseError(resp, ServiceName)
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", ServiceName, err)
	}

	out := make([]domain.RawItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		out = append(out, it.raw())
	}

	span.SetAttributes(attribute.Int("search.results", len(out)))
	e.logger.DebugContext(ctx, "google search completed",
		slog.String("query", query),
		slog.Int("results", len(out)),
	)
	return out, nil
}
