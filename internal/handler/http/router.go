package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hautex/visual-fashion-finder/internal/web"
	"github.com/hautex/visual-fashion-finder/pkg/health"
	"github.com/hautex/visual-fashion-finder/pkg/middleware"
)

// RouterConfig holds the settings the router needs from the service config.
type RouterConfig struct {
	ServiceName    string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	CORS           middleware.CORSConfig
	PprofCIDRs     []string
}

// NewRouter creates a chi router with all fashion finder routes registered.
func NewRouter(
	cfg RouterConfig,
	searchService SearchService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(chimw.Compress(5))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	searchHandler := NewSearchHandler(searchService, cfg.MaxUploadBytes, logger)

	r.Get("/", searchHandler.Root)

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	// Upload UI
	r.Group(func(r chi.Router) {
		r.Use(middleware.CacheControl(300))
		r.Get("/ui", http.RedirectHandler("/ui/", http.StatusMovedPermanently).ServeHTTP)
		r.Handle("/ui/*", http.StripPrefix("/ui", web.Handler()))
	})

	// Search API endpoints
	r.Route("/api/search", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Post("/", searchHandler.Search)
		r.Post("/mock", searchHandler.Mock)
	})

	return r
}
