// Package catalog loads product catalogs for the local search engines.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hautex/visual-fashion-finder/internal/domain"
	"github.com/hautex/visual-fashion-finder/pkg/validator"
)

//go:embed catalog.json
var defaultCatalog []byte

// Default returns the built-in demo catalog.
func Default() ([]domain.CatalogItem, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Load decodes a JSON array of catalog items and validates each entry.
// Duplicate ids are rejected.
func Load(r io.Reader) ([]domain.CatalogItem, error) {
	var items []domain.CatalogItem
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if err := validator.Validate(items[i]); err != nil {
			return nil, fmt.Errorf("catalog item %d: %w", i, err)
		}
		if _, dup := seen[items[i].ID]; dup {
			return nil, fmt.Errorf("catalog item %d: duplicate id %q", i, items[i].ID)
		}
		seen[items[i].ID] = struct{}{}
	}
	return items, nil
}
