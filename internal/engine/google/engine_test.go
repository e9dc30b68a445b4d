package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hautex/visual-fashion-finder/pkg/errors"
	"github.com/hautex/visual-fashion-finder/pkg/httpclient"
	"github.com/hautex/visual-fashion-finder/pkg/logger"
)

const searchPayload = `{
	"items": [
		{
			"title": "T-shirt Bleu | EcoFashion",
			"link": "https://shop.example.com/p/1",
			"displayLink": "shop.example.com",
			"pagemap": {
				"cse_image": [{"src": "https://img.example.com/1.jpg"}],
				"cse_thumbnail": [{"src": "https://img.example.com/1-thumb.jpg"}]
			}
		},
		{
			"title": "Chemise - Azur",
			"link": "https://shop.example.com/p/2",
			"image": {"thumbnailLink": "https://img.example.com/2-thumb.jpg"}
		}
	]
}`

type countingGetter struct {
	calls int
}

func (g *countingGetter) Get(ctx context.Context, url string) (*http.Response, error) {
	g.calls++
	return nil, errors.New("unexpected call")
}

func newEngine(t *testing.T, handler http.HandlerFunc) *Engine {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cb := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.Config{Timeout: 2 * time.Second, MaxConnsPerHost: 4}),
		httpclient.DefaultCircuitBreakerConfig(ServiceName),
		logger.Discard(),
	)
	return New(Config{BaseURL: server.URL, APIKey: "k-123", EngineID: "cx-456"}, cb, logger.Discard())
}

func TestSearch_SendsQueryParameters(t *testing.T) {
	e := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "k-123", q.Get("key"))
		assert.Equal(t, "cx-456", q.Get("cx"))
		assert.Equal(t, "blue t-shirt acheter vêtement", q.Get("q"))
		assert.Equal(t, "10", q.Get("num"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchPayload))
	})

	items, err := e.Search(context.Background(), "blue t-shirt acheter vêtement", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "T-shirt Bleu | EcoFashion", items[0].Title)
	assert.Equal(t, "https://shop.example.com/p/1", items[0].Link)
	assert.Equal(t, "shop.example.com", items[0].DisplayLink)
	require.Len(t, items[0].CSEImage, 1)
	assert.Equal(t, "https://img.example.com/1.jpg", items[0].CSEImage[0].Src)
	require.Len(t, items[0].CSEThumbnail, 1)
	assert.Equal(t, "https://img.example.com/1-thumb.jpg", items[0].CSEThumbnail[0].Src)

	assert.Empty(t, items[1].CSEImage)
	assert.Equal(t, "https://img.example.com/2-thumb.jpg", items[1].ThumbnailLink)
}

func TestSearch_ClampsLimit(t *testing.T) {
	e := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10", r.URL.Query().Get("num"))
		_, _ = w.Write([]byte(`{}`))
	})

	items, err := e.Search(context.Background(), "red dress", 50)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearch_NoItems(t *testing.T) {
	e := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"searchInformation": {"totalResults": "0"}}`))
	})

	items, err := e.Search(context.Background(), "purple cape", 10)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestSearch_UpstreamError(t *testing.T) {
	e := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "API key not valid"}}`))
	})

	_, err := e.Search(context.Background(), "blue t-shirt", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestSearch_ServerError(t *testing.T) {
	e := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := e.Search(context.Background(), "blue t-shirt", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUpstream)
}

func TestSearch_UndecodableBody(t *testing.T) {
	e := newEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := e.Search(context.Background(), "blue t-shirt", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode google-search response")
}

func TestSearch_NotConfigured(t *testing.T) {
	getter := &countingGetter{}
	e := New(Config{APIKey: "k-123"}, getter, logger.Discard())

	_, err := e.Search(context.Background(), "blue t-shirt", 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, getter.calls)
}

func TestNew_DefaultBaseURL(t *testing.T) {
	e := New(Config{}, &countingGetter{}, logger.Discard())
	assert.Equal(t, DefaultBaseURL, e.cfg.BaseURL)
	assert.Equal(t, "google", e.Name())
}
