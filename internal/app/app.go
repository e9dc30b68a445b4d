package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hautex/visual-fashion-finder/internal/cache"
	"github.com/hautex/visual-fashion-finder/internal/catalog"
	"github.com/hautex/visual-fashion-finder/internal/config"
	"github.com/hautex/visual-fashion-finder/internal/engine"
	esengine "github.com/hautex/visual-fashion-finder/internal/engine/elasticsearch"
	"github.com/hautex/visual-fashion-finder/internal/engine/google"
	"github.com/hautex/visual-fashion-finder/internal/engine/memory"
	"github.com/hautex/visual-fashion-finder/internal/event"
	"github.com/hautex/visual-fashion-finder/internal/extractor"
	"github.com/hautex/visual-fashion-finder/internal/fallback"
	handler "github.com/hautex/visual-fashion-finder/internal/handler/http"
	"github.com/hautex/visual-fashion-finder/internal/search"
	"github.com/hautex/visual-fashion-finder/internal/service"
	"github.com/hautex/visual-fashion-finder/pkg/database"
	"github.com/hautex/visual-fashion-finder/pkg/health"
	"github.com/hautex/visual-fashion-finder/pkg/httpclient"
	pkgkafka "github.com/hautex/visual-fashion-finder/pkg/kafka"
	"github.com/hautex/visual-fashion-finder/pkg/middleware"
)

// ServiceName identifies this service in logs, metrics and traces.
const ServiceName = "fashion-finder"

// requestTimeoutMargin leaves room under the server write timeout to send
// the timeout response itself.
const requestTimeoutMargin = 5 * time.Second

// App wires together all dependencies and runs the fashion finder.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	service    *service.SearchService
	redis      *redis.Client
	kafka      *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
// Optional backing services that cannot be reached at startup are logged
// and left out; only the elasticsearch engine is required when selected.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	healthHandler := health.NewHandler()
	a := &App{cfg: cfg, logger: logger}

	// Feature extraction.
	mlClient := a.upstreamClient(extractor.ServiceName)
	ext := extractor.New(cfg.MLServiceURL, mlClient, a.healthClient(), logger)
	healthHandler.RegisterNonCritical("ml-service", ext.Ping)
	logger.Info("feature extractor initialized", slog.String("url", cfg.MLServiceURL))

	// Search engine.
	eng, err := a.searchEngine(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Optional Redis result cache.
	if cfg.CacheEnabled() {
		client, err := a.redisClient(ctx)
		if err != nil {
			logger.Warn("redis unavailable, search cache disabled",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
		} else {
			a.redis = client
			eng = cache.New(eng, client, cfg.CacheTTL, logger)
			healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			})
			logger.Info("search cache enabled",
				slog.String("addr", cfg.RedisAddr),
				slog.Duration("ttl", cfg.CacheTTL),
			)
		}
	}

	// Optional search events.
	var events service.EventPublisher
	if cfg.EventsEnabled() {
		a.kafka = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		events = event.NewProducer(a.kafka, cfg.KafkaSearchTopic, logger)
		healthHandler.RegisterNonCritical("kafka", a.kafka.Ping)
		logger.Info("search events enabled",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic", cfg.KafkaSearchTopic),
		)
	}

	// Build the service layer.
	seed := cfg.PriceSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	normalizer := search.NewNormalizer(
		search.NormalizerConfig{UnknownBrand: cfg.UnknownBrandLabel},
		search.NewPriceSource(seed),
	)
	a.service = service.NewSearchService(
		ext,
		eng,
		search.NewQueryBuilder(cfg.SearchQuerySuffix),
		normalizer,
		fallback.NewGenerator(),
		events,
		service.Config{ResultCount: cfg.SearchResultCount, MockDelay: cfg.MockDelay},
		logger,
	)

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	requestTimeout := cfg.WriteTimeout - requestTimeoutMargin
	if requestTimeout <= 0 {
		requestTimeout = cfg.WriteTimeout
	}

	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    ServiceName,
		MaxUploadBytes: cfg.MaxUploadBytes,
		RequestTimeout: requestTimeout,
		CORS:           cors,
		PprofCIDRs:     cfg.PprofAllowedCIDRs,
	}, a.service, healthHandler, logger)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return a, nil
}

// upstreamClient builds a circuit-breaking HTTP client for one upstream.
func (a *App) upstreamClient(name string) *httpclient.CircuitBreakerClient {
	client := httpclient.New(httpclient.Config{
		Timeout:         a.cfg.UpstreamTimeout,
		MaxRetries:      a.cfg.UpstreamMaxRetries,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 32,
		UserAgent:       ServiceName,
	})

	cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
	cbCfg.Timeout = a.cfg.BreakerTimeout
	cbCfg.FailureRatio = a.cfg.BreakerFailRatio
	cbCfg.MinRequests = a.cfg.BreakerMinRequests

	cb := httpclient.NewCircuitBreakerClient(client, cbCfg, a.logger)
	a.logger.Debug("upstream client initialized",
		slog.String("breaker", cb.Name()),
		slog.Int("max_retries", a.cfg.UpstreamMaxRetries),
	)
	return cb
}

// healthClient builds the plain client used by readiness checks. Health
// checks run on their own timeout and never retry.
func (a *App) healthClient() *httpclient.Client {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = a.cfg.UpstreamTimeout
	cfg.MaxConnsPerHost = 2
	cfg.UserAgent = ServiceName
	return httpclient.New(cfg)
}

// searchEngine initializes the engine selected by SEARCH_ENGINE.
func (a *App) searchEngine(ctx context.Context, healthHandler *health.Handler) (engine.SearchEngine, error) {
	cfg := a.cfg

	switch cfg.SearchEngine {
	case config.EngineElasticsearch:
		esEng, err := esengine.New(ctx, cfg.ElasticsearchURL, cfg.ElasticsearchIndex, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init elasticsearch engine: %w", err)
		}
		healthHandler.RegisterCritical("elasticsearch", esEng.Ping)
		a.logger.Info("elasticsearch search engine initialized",
			slog.String("url", cfg.ElasticsearchURL),
			slog.String("index", cfg.ElasticsearchIndex),
		)
		return esEng, nil

	case config.EngineMemory:
		items, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		a.logger.Info("in-memory search engine initialized", slog.Int("items", len(items)))
		return memory.NewWithItems(items), nil

	default:
		googleClient := a.upstreamClient(google.ServiceName)
		eng := google.New(google.Config{
			BaseURL:  cfg.GoogleSearchURL,
			APIKey:   cfg.GoogleAPIKey,
			EngineID: cfg.GoogleSearchEngineID,
		}, googleClient, a.logger)
		if !cfg.GoogleConfigured() {
			a.logger.Warn("google custom search credentials missing, searches will use fallback products")
		}
		healthHandler.RegisterNonCritical(google.ServiceName, googleClient.Ready)
		a.logger.Info("google search engine initialized", slog.String("url", cfg.GoogleSearchURL))
		return eng, nil
	}
}

// redisClient connects to Redis and registers its pool metrics.
func (a *App) redisClient(ctx context.Context) (*redis.Client, error) {
	redisCfg := database.DefaultRedisConfig()
	redisCfg.Addr = a.cfg.RedisAddr
	redisCfg.Password = a.cfg.RedisPassword
	redisCfg.DB = a.cfg.RedisDB

	client, err := database.NewRedisClientWithLogger(ctx, redisCfg, a.logger)
	if err != nil {
		return nil, err
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, client, ServiceName); err != nil {
		a.logger.Warn("redis pool metrics not registered", slog.String("error", err.Error()))
	}
	return client, nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server, blocking until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("search_engine", a.service.EngineName()),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// Let in-flight event publishes finish before closing the producer.
	a.service.Wait()

	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
