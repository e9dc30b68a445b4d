// Package search turns garment features into search queries and maps raw
// search results onto displayable products.
package search

import (
	"strings"

	"github.com/hautex/visual-fashion-finder/internal/domain"
)

// DefaultQuerySuffix is appended to every query to bias results towards shops.
const DefaultQuerySuffix = "acheter vêtement"

// QueryBuilder assembles a free-text query from a feature description.
type QueryBuilder struct {
	suffix string
}

// NewQueryBuilder creates a builder. An empty suffix selects DefaultQuerySuffix.
func NewQueryBuilder(suffix string) *QueryBuilder {
	if strings.TrimSpace(suffix) == "" {
		suffix = DefaultQuerySuffix
	}
	return &QueryBuilder{suffix: suffix}
}

// Build joins primary color, category, pattern, style, secondary color and
// the suffix, in that order. Empty optional fields are skipped.
func (b *QueryBuilder) Build(f domain.FeatureDescription) string {
	parts := []string{f.Color.Primary, f.Category}
	for _, opt := range []string{f.Pattern, f.Style, f.Color.Secondary} {
		if opt != "" {
			parts = append(parts, opt)
		}
	}
	parts = append(parts, b.suffix)
	return strings.Join(parts, " ")
}
