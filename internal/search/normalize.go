package search

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/hautex/visual-fashion-finder/internal/domain"
)

// Labels used when a raw item lacks data.
const (
	DefaultUnknownBrand     = "Marque inconnue"
	DefaultSourceLabel      = "Google Shopping"
	DefaultPlaceholderImage = "https://via.placeholder.com/300x400?text=Image+Non+Disponible"
)

// Synthetic price range, in whole currency units, inclusive.
const (
	MinPrice = 20
	MaxPrice = 99
)

// PriceSource yields pseudo-random integers in [0, n).
type PriceSource interface {
	Intn(n int) int
}

// lockedSource makes a *rand.Rand safe for concurrent requests.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewPriceSource returns a concurrency-safe PriceSource seeded with seed.
func NewPriceSource(seed int64) PriceSource {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// NormalizerConfig customizes the labels a Normalizer emits.
type NormalizerConfig struct {
	UnknownBrand     string
	DefaultSource    string
	PlaceholderImage string
	Currency         string
}

// Normalizer maps raw search items onto products.
type Normalizer struct {
	cfg    NormalizerConfig
	prices PriceSource
}

// NewNormalizer creates a Normalizer. Empty config fields take the package
// defaults.
func NewNormalizer(cfg NormalizerConfig, prices PriceSource) *Normalizer {
	if cfg.UnknownBrand == "" {
		cfg.UnknownBrand = DefaultUnknownBrand
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = DefaultSourceLabel
	}
	if cfg.PlaceholderImage == "" {
		cfg.PlaceholderImage = DefaultPlaceholderImage
	}
	if cfg.Currency == "" {
		cfg.Currency = domain.CurrencyEUR
	}
	return &Normalizer{cfg: cfg, prices: prices}
}

// Normalize converts items to products whose ids are "<idPrefix>-<index>".
func (n *Normalizer) Normalize(items []domain.RawItem, idPrefix string) []domain.Product {
	products := make([]domain.Product, 0, len(items))
	for i, item := range items {
		products = append(products, n.normalizeItem(item, fmt.Sprintf("%s-%d", idPrefix, i)))
	}
	return products
}

func (n *Normalizer) normalizeItem(item domain.RawItem, id string) domain.Product {
	brand := BrandFromTitle(item.Title)
	if brand == "" {
		brand = n.cfg.UnknownBrand
	}
	source := item.DisplayLink
	if source == "" {
		source = n.cfg.DefaultSource
	}

	return domain.Product{
		ID:         id,
		Name:       NameFromTitle(item.Title),
		Brand:      brand,
		Price:      domain.Whole(int64(MinPrice + n.prices.Intn(MaxPrice-MinPrice+1))),
		Currency:   n.cfg.Currency,
		ImageURL:   n.imageURL(item),
		ProductURL: item.Link,
		Source:     source,
	}
}

func (n *Normalizer) imageURL(item domain.RawItem) string {
	if len(item.CSEImage) > 0 && item.CSEImage[0].Src != "" {
		return item.CSEImage[0].Src
	}
	if len(item.CSEThumbnail) > 0 && item.CSEThumbnail[0].Src != "" {
		return item.CSEThumbnail[0].Src
	}
	if item.ThumbnailLink != "" {
		return item.ThumbnailLink
	}
	return n.cfg.PlaceholderImage
}

// NameFromTitle returns the text before the first "|" or, failing that, before
// the first " - ". Hyphenated words are left intact. An empty result falls
// back to the whole title.
func NameFromTitle(title string) string {
	name, _, found := strings.Cut(title, "|")
	if !found {
		name, _, _ = strings.Cut(title, " - ")
	}
	if name = strings.TrimSpace(name); name == "" {
		return strings.TrimSpace(title)
	}
	return name
}

// BrandFromTitle returns the segment between the first and second "|", or ""
// when the title has no "|".
func BrandFromTitle(title string) string {
	_, rest, found := strings.Cut(title, "|")
	if !found {
		return ""
	}
	brand, _, _ := strings.Cut(rest, "|")
	return strings.TrimSpace(brand)
}
