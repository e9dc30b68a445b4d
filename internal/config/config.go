package config

import (
	"fmt"
	"net/url"
	"time"

	pkgconfig "github.com/hautex/visual-fashion-finder/pkg/config"
)

// Search engine names accepted by SEARCH_ENGINE.
const (
	EngineGoogle        = "google"
	EngineElasticsearch = "elasticsearch"
	EngineMemory        = "memory"
)

// MaxSearchResults is the upper bound of the Custom Search API "num" parameter.
const MaxSearchResults = 10

// Config holds all configuration for the fashion finder server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"PORT" envDefault:"3001"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"45s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Uploads
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
	MockDelay      time.Duration `env:"MOCK_DELAY" envDefault:"1500ms"`

	// Feature extraction service
	MLServiceURL string `env:"ML_SERVICE_URL" envDefault:"http://localhost:8000"`

	// Search
	SearchEngine      string `env:"SEARCH_ENGINE" envDefault:"google"`
	SearchResultCount int    `env:"SEARCH_RESULT_COUNT" envDefault:"10"`
	SearchQuerySuffix string `env:"SEARCH_QUERY_SUFFIX" envDefault:"acheter vêtement"`
	UnknownBrandLabel string `env:"UNKNOWN_BRAND_LABEL" envDefault:"Marque inconnue"`
	PriceSeed         int64  `env:"PRICE_SEED" envDefault:"0"`

	// Google Custom Search
	GoogleAPIKey         string `env:"GOOGLE_API_KEY"`
	GoogleSearchEngineID string `env:"GOOGLE_SEARCH_ENGINE_ID"`
	GoogleSearchURL      string `env:"GOOGLE_SEARCH_URL" envDefault:"https://www.googleapis.com/customsearch/v1"`

	// Elasticsearch
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"fashion_products"`

	// Outbound calls
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"10s"`
	UpstreamMaxRetries int           `env:"UPSTREAM_MAX_RETRIES" envDefault:"0"`
	BreakerTimeout     time.Duration `env:"CIRCUIT_BREAKER_TIMEOUT" envDefault:"30s"`
	BreakerMinRequests uint32        `env:"CIRCUIT_BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerFailRatio   float64       `env:"CIRCUIT_BREAKER_FAILURE_RATIO" envDefault:"0.5"`

	// Redis result cache; empty address disables it.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	// Kafka search events; no brokers disables publishing.
	KafkaBrokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaSearchTopic string   `env:"KAFKA_SEARCH_TOPIC" envDefault:"fashionfinder.search.completed"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.0/8,::1/128" envSeparator:","`

	// Slow datastore call logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load fashion finder config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.MockDelay < 0 {
		return fmt.Errorf("MOCK_DELAY must not be negative, got %s", c.MockDelay)
	}
	if u, err := url.Parse(c.MLServiceURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ML_SERVICE_URL must be an absolute URL, got %q", c.MLServiceURL)
	}
	switch c.SearchEngine {
	case EngineGoogle, EngineElasticsearch, EngineMemory:
	default:
		return fmt.Errorf("SEARCH_ENGINE must be one of google, elasticsearch, memory; got %q", c.SearchEngine)
	}
	if c.SearchResultCount < 1 || c.SearchResultCount > MaxSearchResults {
		return fmt.Errorf("SEARCH_RESULT_COUNT must be between 1 and %d, got %d", MaxSearchResults, c.SearchResultCount)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.UpstreamMaxRetries < 0 {
		return fmt.Errorf("UPSTREAM_MAX_RETRIES must not be negative, got %d", c.UpstreamMaxRetries)
	}
	if c.BreakerFailRatio <= 0 || c.BreakerFailRatio > 1.0 {
		return fmt.Errorf("CIRCUIT_BREAKER_FAILURE_RATIO must be in (0, 1], got %f", c.BreakerFailRatio)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative, got %s", c.CacheTTL)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// GoogleConfigured reports whether both Custom Search credentials are set.
func (c *Config) GoogleConfigured() bool {
	return c.GoogleAPIKey != "" && c.GoogleSearchEngineID != ""
}

// CacheEnabled reports whether the Redis result cache should be used.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != "" && c.CacheTTL > 0
}

// EventsEnabled reports whether search events should be published.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// SlowQueryThreshold returns LOG_SLOW_QUERY_MS as a duration.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
