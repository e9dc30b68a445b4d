// Package fallback provides the canned product catalog served when an
// upstream dependency is unavailable.
package fallback

import (
	"fmt"

	"github.com/hautex/visual-fashion-finder/internal/domain"
)

// entry is a catalog template. Name is a format string receiving the
// category then the color name.
type entry struct {
	id       string
	name     string
	brand    string
	price    domain.Price
	imageURL string
	url      string
	source   string
}

// buckets holds exactly two entries per color key.
var buckets = map[domain.ColorKey][2]entry{
	domain.ColorBlue: {
		{"mock-blue-1", "%s %s coupe classique", "Bleu de Chauffe", domain.Cents(3499), "https://via.placeholder.com/300x400/1e3a8a/ffffff?text=Bleu+1", "https://example.com/products/blue-1", "Mode Bleue"},
		{"mock-blue-2", "%s %s en coton bio", "Azur Studio", domain.Cents(2799), "https://via.placeholder.com/300x400/3b82f6/ffffff?text=Bleu+2", "https://example.com/products/blue-2", "Azur Store"},
	},
	domain.ColorRed: {
		{"mock-red-1", "%s %s ajusté", "Carmin", domain.Cents(3999), "https://via.placeholder.com/300x400/991b1b/ffffff?text=Rouge+1", "https://example.com/products/red-1", "Carmin Boutique"},
		{"mock-red-2", "%s %s vintage", "Rubis & Co", domain.Cents(2499), "https://via.placeholder.com/300x400/ef4444/ffffff?text=Rouge+2", "https://example.com/products/red-2", "Fashion Marketplace"},
	},
	domain.ColorGreen: {
		{"mock-green-1", "%s %s en lin", "Olive Atelier", domain.Cents(4499), "https://via.placeholder.com/300x400/166534/ffffff?text=Vert+1", "https://example.com/products/green-1", "Olive Atelier"},
		{"mock-green-2", "%s %s sport", "Sauge", domain.Cents(2299), "https://via.placeholder.com/300x400/22c55e/ffffff?text=Vert+2", "https://example.com/products/green-2", "Sport Outlet"},
	},
	domain.ColorBlack: {
		{"mock-black-1", "%s %s élégant", "Noir Absolu", domain.Cents(4999), "https://via.placeholder.com/300x400/111827/ffffff?text=Noir+1", "https://example.com/products/black-1", "Noir Absolu"},
		{"mock-black-2", "%s %s oversize", "UrbanStyle", domain.Cents(3299), "https://via.placeholder.com/300x400/374151/ffffff?text=Noir+2", "https://example.com/products/black-2", "UrbanStyle Official"},
	},
	domain.ColorWhite: {
		{"mock-white-1", "%s %s essentiel", "BasicWear", domain.Cents(1999), "https://via.placeholder.com/300x400/f9fafb/111827?text=Blanc+1", "https://example.com/products/white-1", "BasicWear"},
		{"mock-white-2", "%s %s premium", "EcoFashion", domain.Cents(2999), "https://via.placeholder.com/300x400/e5e7eb/111827?text=Blanc+2", "https://example.com/products/white-2", "EcoFashion Store"},
	},
	domain.ColorDefault: {
		{"mock-default-1", "%s %s tendance", "TrendyBrands", domain.Cents(3499), "https://via.placeholder.com/300x400?text=Produit+1", "https://example.com/products/default-1", "TrendyBrands Outlet"},
		{"mock-default-2", "%s %s confort", "Comfort Line", domain.Cents(2699), "https://via.placeholder.com/300x400?text=Produit+2", "https://example.com/products/default-2", "Fashion Marketplace"},
	},
}

// generic entries are appended to every response. Their names are fixed.
var generic = [2]entry{
	{"mock-generic-1", "T-shirt premium coton bio", "EcoFashion", domain.Cents(2999), "https://via.placeholder.com/300x400?text=T-shirt", "https://example.com/product/1", "EcoFashion Store"},
	{"mock-generic-2", "T-shirt col rond classique", "BasicWear", domain.Cents(1999), "https://via.placeholder.com/300x400?text=T-shirt+2", "https://example.com/product/2", "Fashion Marketplace"},
}

// Size is the number of products every Generate call returns.
const Size = 4

// Generator builds deterministic product lists from the canned catalog.
type Generator struct{}

// NewGenerator creates a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns the color bucket for features.Color.Primary followed by
// the generic entries. Unknown colors use the default bucket.
func (g *Generator) Generate(features domain.FeatureDescription) []domain.Product {
	key := domain.NormalizeColor(features.Color.Primary)
	bucket := buckets[key]

	category := features.Category
	if category == "" {
		category = domain.DefaultFeatures().Category
	}
	color := features.Color.Primary
	if key == domain.ColorDefault && color == "" {
		color = string(domain.ColorDefault)
	}

	products := make([]domain.Product, 0, Size)
	for _, e := range bucket {
		products = append(products, e.product(fmt.Sprintf(e.name, category, color)))
	}
	for _, e := range generic {
		products = append(products, e.product(e.name))
	}
	return products
}

func (e entry) product(name string) domain.Product {
	return domain.Product{
		ID:         e.id,
		Name:       name,
		Brand:      e.brand,
		Price:      e.price,
		Currency:   domain.CurrencyEUR,
		ImageURL:   e.imageURL,
		ProductURL: e.url,
		Source:     e.source,
	}
}
