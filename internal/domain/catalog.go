package domain

import "strings"

// CatalogItem is a product document held by a local search backend.
type CatalogItem struct {
	ID           string   `json:"id" validate:"required"`
	Title        string   `json:"title" validate:"required"`
	Brand        string   `json:"brand,omitempty"`
	Category     string   `json:"category,omitempty"`
	Color        string   `json:"color,omitempty"`
	Description  string   `json:"description,omitempty"`
	URL          string   `json:"url" validate:"required,http_url"`
	ImageURL     string   `json:"image_url,omitempty" validate:"omitempty,http_url"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty" validate:"omitempty,http_url"`
	Source       string   `json:"source,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// RawItem maps the catalog entry onto the search result shape. The brand is
// folded into the title as "title | brand" so normalization recovers both.
func (c CatalogItem) RawItem() RawItem {
	title := c.Title
	if c.Brand != "" {
		title = c.Title + " | " + c.Brand
	}
	item := RawItem{
		Title:         title,
		Link:          c.URL,
		DisplayLink:   c.Source,
		ThumbnailLink: c.ThumbnailURL,
	}
	if c.ImageURL != "" {
		item.CSEImage = []ImageRef{{Src: c.ImageURL}}
	}
	return item
}

// SearchText returns the lowercase text a keyword search matches against.
func (c CatalogItem) SearchText() string {
	parts := []string{c.Title, c.Brand, c.Category, c.Color, c.Description}
	parts = append(parts, c.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}
