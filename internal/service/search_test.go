package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	"github.com/hautex/visual-fashion-finder/internal/engine/memory"
	"github.com/hautex/visual-fashion-finder/internal/event"
	"github.com/hautex/visual-fashion-finder/internal/fallback"
	"github.com/hautex/visual-fashion-finder/internal/search"
	"github.com/hautex/visual-fashion-finder/pkg/logger"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockExtractor struct {
	mock.Mock
}

func (m *mockExtractor) Extract(ctx context.Context, img domain.Image) (domain.FeatureDescription, error) {
	args := m.Called(ctx, img)
	return args.Get(0).(domain.FeatureDescription), args.Error(1)
}

type mockEngine struct {
	mock.Mock
}

func (m *mockEngine) Name() string { return "google" }

func (m *mockEngine) Search(ctx context.Context, query string, limit int) ([]domain.RawItem, error) {
	args := m.Called(ctx, query, limit)
	items, _ := args.Get(0).([]domain.RawItem)
	return items, args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.SearchCompletedData
	err    error
}

func (p *recordingPublisher) PublishSearchCompleted(_ context.Context, data event.SearchCompletedData) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, data)
	return p.err
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var fixedNow = time.UnixMilli(1700000000000)

func redFeatures() domain.FeatureDescription {
	return domain.FeatureDescription{
		Category: "dress",
		Color:    domain.Color{Primary: "red"},
		Pattern:  "floral",
	}
}

func rawItems() []domain.RawItem {
	return []domain.RawItem{
		{Title: "Robe fleurie | Carmin", Link: "https://shop.example.com/1", DisplayLink: "shop.example.com"},
		{Title: "Robe midi - Rubis", Link: "https://shop.example.com/2"},
	}
}

func newTestService(ext FeatureExtractor, eng *mockEngine, pub EventPublisher, delay time.Duration) *SearchService {
	svc := NewSearchService(
		ext,
		eng,
		search.NewQueryBuilder(""),
		search.NewNormalizer(search.NormalizerConfig{}, search.NewPriceSource(1)),
		fallback.NewGenerator(),
		pub,
		Config{ResultCount: 10, MockDelay: delay},
		logger.Discard(),
	)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func testImage() domain.Image {
	return domain.Image{Filename: "a.png", ContentType: "image/png", Data: []byte("png")}
}

// ---------------------------------------------------------------------------
// Search
// ---------------------------------------------------------------------------

func TestSearch_HappyPath(t *testing.T) {
	ext := new(mockExtractor)
	eng := new(mockEngine)
	pub := &recordingPublisher{}
	svc := newTestService(ext, eng, pub, 0)

	ext.On("Extract", mock.Anything, testImage()).Return(redFeatures(), nil)
	eng.On("Search", mock.Anything, "red dress floral acheter vêtement", 10).Return(rawItems(), nil)

	outcome, err := svc.Search(context.Background(), testImage())
	require.NoError(t, err)
	svc.Wait()

	assert.False(t, outcome.Degraded)
	assert.Empty(t, outcome.FallbackStages)
	assert.Equal(t, "red dress floral acheter vêtement", outcome.Query)
	require.Len(t, outcome.Products, 2)

	assert.Equal(t, "google-1700000000000-0", outcome.Products[0].ID)
	assert.Equal(t, "google-1700000000000-1", outcome.Products[1].ID)
	assert.Equal(t, "Robe fleurie", outcome.Products[0].Name)
	assert.Equal(t, "Carmin", outcome.Products[0].Brand)
	assert.Equal(t, "Robe midi", outcome.Products[1].Name)
	assert.Equal(t, "Marque inconnue", outcome.Products[1].Brand)
	assert.Equal(t, "Google Shopping", outcome.Products[1].Source)
	for _, p := range outcome.Products {
		assert.GreaterOrEqual(t, p.Price, domain.Whole(20))
		assert.LessOrEqual(t, p.Price, domain.Whole(99))
	}

	require.Len(t, pub.events, 1)
	assert.Equal(t, "google", pub.events[0].Engine)
	assert.Equal(t, 2, pub.events[0].ResultCount)
	assert.False(t, pub.events[0].Mock)

	ext.AssertExpectations(t)
	eng.AssertExpectations(t)
}

func TestSearch_ExtractFailureUsesDefaultFeatures(t *testing.T) {
	ext := new(mockExtractor)
	eng := new(mockEngine)
	svc := newTestService(ext, eng, nil, 0)

	ext.On("Extract", mock.Anything, mock.Anything).Return(domain.FeatureDescription{}, errors.New("connection refused"))
	eng.On("Search", mock.Anything, "blue t-shirt solid casual white acheter vêtement", 10).Return(rawItems(), nil)

	outcome, err := svc.Search(context.Background(), testImage())
	require.NoError(t, err)

	assert.True(t, outcome.Degraded)
	assert.Equal(t, []string{domain.StageExtract}, outcome.FallbackStages)
	assert.Equal(t, domain.DefaultFeatures(), outcome.Features)
	assert.Len(t, outcome.Products, 2)
	eng.AssertExpectations(t)
}

func TestSearch_SearchFailureUsesFallbackProducts(t *testing.T) {
	ext := new(mockExtractor)
	eng := new(mockEngine)
	svc := newTestService(ext, eng, nil, 0)

	ext.On("Extract", mock.Anything, mock.Anything).Return(redFeatures(), nil)
	eng.On("Search", mock.Anything, mock.Anything, 10).Return(nil, errors.New("quota exceeded"))

	outcome, err := svc.Search(context.Background(), testImage())
	require.NoError(t, err)

	assert.True(t, outcome.Degraded)
	assert.Equal(t, []string{domain.StageSearch}, outcome.FallbackStages)
	assert.Equal(t, fallback.NewGenerator().Generate(redFeatures()), outcome.Products)
}

func TestSearch_BothUpstreamsFail(t *testing.T) {
	ext := new(mockExtractor)
	eng := new(mockEngine)
	svc := newTestService(ext, eng, nil, 0)

	ext.On("Extract", mock.Anything, mock.Anything).Return(domain.FeatureDescription{}, context.DeadlineExceeded)
	eng.On("Search", mock.Anything, mock.Anything, 10).Return(nil, errors.New("503"))

	outcome, err := svc.Search(context.Background(), testImage())
	require.NoError(t, err)

	assert.True(t, outcome.Degraded)
	assert.Equal(t, []string{domain.StageExtract, domain.StageSearch}, outcome.FallbackStages)
	assert.Len(t, outcome.Products, fallback.Size)
	assert.NoError(t, domain.ValidateProducts(outcome.Products))
}

func TestSearch_EmptyResultsAreNotDegraded(t *testing.T) {
	ext := new(mockExtractor)
	eng := new(mockEngine)
	svc := newTestService(ext, eng, nil, 0)

	ext.On("Extract", mock.Anything, mock.Anything).Return(redFeatures(), nil)
	eng.On("Search", mock.Anything, mock.Anything, 10).Return([]domain.RawItem{}, nil)

	outcome, err := svc.Search(context.Background(), testImage())
	require.NoError(t, err)

	assert.False(t, outcome.Degraded)
	assert.NotNil(t, outcome.Products)
	assert.Empty(t, outcome.Products)
}

func TestSearch_WithMemoryEngine(t *testing.T) {
	ext := new(mockExtractor)
	ext.On("Extract", mock.Anything, mock.Anything).Return(redFeatures(), nil)

	eng := memory.NewWithItems([]domain.CatalogItem{
		{ID: "a", Title: "Robe rouge", Brand: "Carmin", Category: "dress", Color: "red", URL: "https://shop.example.com/a"},
		{ID: "b", Title: "Jean brut", Category: "jeans", Color: "blue", URL: "https://shop.example.com/b"},
	})
	svc := NewSearchService(ext, eng, search.NewQueryBuilder(""),
		search.NewNormalizer(search.NormalizerConfig{}, search.NewPriceSource(1)),
		fallback.NewGenerator(), nil, Config{ResultCount: 10}, logger.Discard())

	outcome, err := svc.Search(context.Background(), testImage())
	require.NoError(t, err)
	require.Len(t, outcome.Products, 1)
	assert.Equal(t, "Carmin", outcome.Products[0].Brand)
	assert.Regexp(t, `^memory-\d+-0$`, outcome.Products[0].ID)
	assert.Equal(t, "memory", svc.EngineName())
}

func TestSearch_PublishFailureIsIgnored(t *testing.T) {
	ext := new(mockExtractor)
	eng := new(mockEngine)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(ext, eng, pub, 0)

	ext.On("Extract", mock.Anything, mock.Anything).Return(redFeatures(), nil)
	eng.On("Search", mock.Anything, mock.Anything, 10).Return(rawItems(), nil)

	outcome, err := svc.Search(logger.WithCorrelationID(context.Background(), "req-42"), testImage())
	require.NoError(t, err)
	assert.Len(t, outcome.Products, 2)

	svc.Wait()
	require.Len(t, pub.events, 1)
	assert.Equal(t, "req-42", pub.events[0].RequestID)
}

func TestSearch_NoPublishAfterWait(t *testing.T) {
	ext := new(mockExtractor)
	eng := new(mockEngine)
	pub := &recordingPublisher{}
	svc := newTestService(ext, eng, pub, 0)

	ext.On("Extract", mock.Anything, mock.Anything).Return(redFeatures(), nil)
	eng.On("Search", mock.Anything, mock.Anything, 10).Return(rawItems(), nil)

	svc.Wait()

	outcome, err := svc.Search(context.Background(), testImage())
	require.NoError(t, err)
	assert.Len(t, outcome.Products, 2)

	_, err = svc.Mock(context.Background())
	require.NoError(t, err)

	svc.Wait()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Empty(t, pub.events)
}

func TestWait_RacesLateSearches(t *testing.T) {
	ext := new(mockExtractor)
	eng := new(mockEngine)
	pub := &recordingPublisher{}
	svc := newTestService(ext, eng, pub, 0)

	ext.On("Extract", mock.Anything, mock.Anything).Return(redFeatures(), nil)
	eng.On("Search", mock.Anything, mock.Anything, 10).Return(rawItems(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Search(context.Background(), testImage())
		}()
	}
	svc.Wait()
	wg.Wait()
	svc.Wait()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.LessOrEqual(t, len(pub.events), 20)
}

// ---------------------------------------------------------------------------
// Mock
// ---------------------------------------------------------------------------

func TestMock_IsDeterministic(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newTestService(new(mockExtractor), new(mockEngine), pub, time.Millisecond)

	first, err := svc.Mock(context.Background())
	require.NoError(t, err)
	second, err := svc.Mock(context.Background())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	assert.Len(t, first.Products, fallback.Size)
	assert.False(t, first.Degraded)

	svc.Wait()
	require.Len(t, pub.events, 2)
	assert.True(t, pub.events[0].Mock)
}

func TestMock_WaitsForDelay(t *testing.T) {
	svc := newTestService(new(mockExtractor), new(mockEngine), nil, 50*time.Millisecond)

	start := time.Now()
	_, err := svc.Mock(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestMock_CanceledContext(t *testing.T) {
	svc := newTestService(new(mockExtractor), new(mockEngine), nil, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Mock(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
