package domain

// ImageRef is a single image entry in a search result's page metadata.
type ImageRef struct {
	Src string `json:"src"`
}

// RawItem is one result returned by a search engine before normalization.
// Its shape follows the Custom Search JSON API item; other engines map their
// hits into it.
type RawItem struct {
	Title         string     `json:"title"`
	Link          string     `json:"link"`
	DisplayLink   string     `json:"displayLink"`
	CSEImage      []ImageRef `json:"cseImage,omitempty"`
	CSEThumbnail  []ImageRef `json:"cseThumbnail,omitempty"`
	ThumbnailLink string     `json:"thumbnailLink,omitempty"`
}

// Fallback stages reported on degraded responses.
const (
	StageExtract = "extract"
	StageSearch  = "search"
)

// SearchOutcome is the result of relaying one uploaded image through the
// extraction and search pipeline.
type SearchOutcome struct {
	Products       []Product          `json:"products"`
	Query          string             `json:"query,omitempty"`
	Features       FeatureDescription `json:"features"`
	Degraded       bool               `json:"degraded"`
	FallbackStages []string           `json:"fallbackStages,omitempty"`
}

// MarkFallback records that the given stage fell back to canned data.
func (o *SearchOutcome) MarkFallback(stage string) {
	o.Degraded = true
	o.FallbackStages = append(o.FallbackStages, stage)
}
