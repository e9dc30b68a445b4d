package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	"github.com/hautex/visual-fashion-finder/internal/engine"
	"github.com/hautex/visual-fashion-finder/internal/event"
	"github.com/hautex/visual-fashion-finder/internal/fallback"
	"github.com/hautex/visual-fashion-finder/internal/search"
	"github.com/hautex/visual-fashion-finder/pkg/logger"
	"github.com/hautex/visual-fashion-finder/pkg/tracing"
)

// publishTimeout bounds one best-effort event publish.
const publishTimeout = 5 * time.Second

// FeatureExtractor describes a garment image.
type FeatureExtractor interface {
	Extract(ctx context.Context, img domain.Image) (domain.FeatureDescription, error)
}

// EventPublisher announces finished searches.
type EventPublisher interface {
	PublishSearchCompleted(ctx context.Context, data event.SearchCompletedData) error
}

// Config tunes the search pipeline.
type Config struct {
	ResultCount int
	MockDelay   time.Duration
}

// SearchService relays an uploaded image through feature extraction and a
// search engine. Upstream failures never surface: each failing stage is
// replaced by canned data and the outcome is flagged as degraded.
type SearchService struct {
	extractor  FeatureExtractor
	engine     engine.SearchEngine
	queries    *search.QueryBuilder
	normalizer *search.Normalizer
	fallback   *fallback.Generator
	events     EventPublisher
	cfg        Config
	logger     *slog.Logger

	now func() time.Time

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// NewSearchService creates a search service. A nil events publisher
// disables search events.
func NewSearchService(
	extractor FeatureExtractor,
	eng engine.SearchEngine,
	queries *search.QueryBuilder,
	normalizer *search.Normalizer,
	gen *fallback.Generator,
	events EventPublisher,
	cfg Config,
	logger *slog.Logger,
) *SearchService {
	if events == nil {
		events = event.NoopProducer{}
	}
	return &SearchService{
		extractor:  extractor,
		engine:     eng,
		queries:    queries,
		normalizer: normalizer,
		fallback:   gen,
		events:     events,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// EngineName returns the name of the configured search engine.
func (s *SearchService) EngineName() string {
	return s.engine.Name()
}

// Search runs extract, build query, search and normalize for img. The
// returned error is non-nil only for internal invariant violations.
func (s *SearchService) Search(ctx context.Context, img domain.Image) (_ *domain.SearchOutcome, err error) {
	start := s.now()
	ctx, span := tracing.StartSpan(ctx, "service", "search.relay",
		attribute.String("search.engine", s.engine.Name()),
		attribute.Int("image.size", img.Size()),
	)
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	outcome := &domain.SearchOutcome{}

	extractStart := time.Now()
	features, err := s.extractor.Extract(ctx, img)
	stageDuration.WithLabelValues(domain.StageExtract).Observe(time.Since(extractStart).Seconds())
	if err != nil {
		s.recordFallback(ctx, outcome, domain.StageExtract, err)
		features = domain.DefaultFeatures()
	}
	outcome.Features = features

	outcome.Query = s.queries.Build(features)
	ctx = logger.WithSearchQuery(ctx, outcome.Query)
	span.SetAttributes(attribute.String("search.query", outcome.Query))

	searchStart := time.Now()
	items, err := s.engine.Search(ctx, outcome.Query, s.cfg.ResultCount)
	stageDuration.WithLabelValues(domain.StageSearch).Observe(time.Since(searchStart).Seconds())
	if err != nil {
		s.recordFallback(ctx, outcome, domain.StageSearch, err)
		outcome.Products = s.fallback.Generate(features)
	} else {
		prefix := fmt.Sprintf("%s-%d", s.engine.Name(), s.now().UnixMilli())
		outcome.Products = s.normalizer.Normalize(items, prefix)
	}

	if err := domain.ValidateProducts(outcome.Products); err != nil {
		return nil, fmt.Errorf("search outcome: %w", err)
	}

	searchResults.WithLabelValues(s.engine.Name()).Observe(float64(len(outcome.Products)))
	span.SetAttributes(
		attribute.Int("search.results", len(outcome.Products)),
		attribute.Bool("search.degraded", outcome.Degraded),
	)
	s.logger.InfoContext(ctx, "search completed",
		slog.String("engine", s.engine.Name()),
		slog.String("query", outcome.Query),
		slog.Int("results", len(outcome.Products)),
		slog.Bool("degraded", outcome.Degraded),
	)

	s.publish(ctx, outcome, false, start)
	return outcome, nil
}

// Mock waits for the configured delay and returns the canned products for
// the default features. The output is identical on every call.
func (s *SearchService) Mock(ctx context.Context) (*domain.SearchOutcome, error) {
	start := s.now()
	if s.cfg.MockDelay > 0 {
		timer := time.NewTimer(s.cfg.MockDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("mock search: %w", ctx.Err())
		}
	}

	features := domain.DefaultFeatures()
	outcome := &domain.SearchOutcome{
		Products: s.fallback.Generate(features),
		Features: features,
	}

	s.publish(ctx, outcome, true, start)
	return outcome, nil
}

// Wait stops new event publishes and blocks until pending ones finish.
// Searches still complete after Wait; their events are dropped.
func (s *SearchService) Wait() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.inflight.Wait()
}

func (s *SearchService) recordFallback(ctx context.Context, outcome *domain.SearchOutcome, stage string, err error) {
	outcome.MarkFallback(stage)
	fallbackTotal.WithLabelValues(stage).Inc()
	s.logger.WarnContext(ctx, "upstream failed, using fallback",
		slog.String("stage", stage),
		slog.String("engine", s.engine.Name()),
		slog.String("error", err.Error()),
	)
}

// publish sends the search event in the background so the response is not
// held up by the broker. The request context's values are kept but its
// cancellation is not.
func (s *SearchService) publish(ctx context.Context, outcome *domain.SearchOutcome, mock bool, start time.Time) {
	requestID := logger.CorrelationIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	data := event.NewSearchCompletedData(requestID, s.engine.Name(), outcome, mock, s.now().Sub(start).Milliseconds())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "search event dropped after shutdown",
			slog.String("request_id", requestID),
		)
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	go func() {
		defer s.inflight.Done()
		defer cancel()
		if err := s.events.PublishSearchCompleted(pubCtx, data); err != nil {
			s.logger.WarnContext(pubCtx, "failed to publish search event",
				slog.String("request_id", requestID),
				slog.String("error", err.Error()),
			)
		}
	}()
}
