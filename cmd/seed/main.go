// Command seed bulk-loads a product catalog into the Elasticsearch index
// searched by the elasticsearch engine.
//
// Run: go run ./cmd/seed -catalog products.json -recreate
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hautex/visual-fashion-finder/internal/catalog"
	"github.com/hautex/visual-fashion-finder/internal/domain"
	esengine "github.com/hautex/visual-fashion-finder/internal/engine/elasticsearch"
	pkgconfig "github.com/hautex/visual-fashion-finder/pkg/config"
	"github.com/hautex/visual-fashion-finder/pkg/logger"
)

// seedConfig reads the same variables as the server so a shared .env works.
type seedConfig struct {
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
	ElasticsearchURL   string `env:"ELASTICSEARCH_URL" envDefault:"http://localhost:9200"`
	ElasticsearchIndex string `env:"ELASTICSEARCH_INDEX" envDefault:"fashion_products"`
}

func main() {
	if _, err := pkgconfig.LoadDotenv(); err != nil {
		slog.Error("failed to read .env file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var cfg seedConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	catalogFile := flag.String("catalog", "", "JSON catalog file (default: built-in demo catalog)")
	esURL := flag.String("es-url", cfg.ElasticsearchURL, "Elasticsearch URL")
	index := flag.String("index", cfg.ElasticsearchIndex, "Index name")
	recreate := flag.Bool("recreate", false, "Delete and recreate the index before loading")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	log := logger.New("fashion-finder-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	if err := run(ctx, *catalogFile, *esURL, *index, *recreate, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, catalogFile, esURL, index string, recreate bool, log *slog.Logger) error {
	items, err := loadCatalog(catalogFile)
	if err != nil {
		return err
	}

	eng, err := esengine.New(ctx, esURL, index, log)
	if err != nil {
		return fmt.Errorf("connect to elasticsearch: %w", err)
	}

	if recreate {
		if err := eng.DeleteIndex(ctx); err != nil {
			return fmt.Errorf("delete index: %w", err)
		}
		// New creates the index with its mapping when it is missing.
		if eng, err = esengine.New(ctx, esURL, index, log); err != nil {
			return fmt.Errorf("recreate index: %w", err)
		}
		log.Info("index recreated", slog.String("index", index))
	}

	start := time.Now()
	if err := eng.BulkIndex(ctx, items); err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}

	log.Info("catalog seeded",
		slog.String("index", index),
		slog.Int("items", len(items)),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

func loadCatalog(path string) ([]domain.CatalogItem, error) {
	if path == "" {
		return catalog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer func() { _ = f.Close() }()

	items, err := catalog.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return items, nil
}
