package domain

// Color holds the dominant colors detected on a garment.
type Color struct {
	Primary   string `json:"primary" validate:"required"`
	Secondary string `json:"secondary,omitempty"`
}

// FeatureDescription is the structured description of a garment produced by
// the feature-extraction service.
type FeatureDescription struct {
	Category   string            `json:"category" validate:"required"`
	Color      Color             `json:"color"`
	Pattern    string            `json:"pattern,omitempty"`
	Style      string            `json:"style,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Confidence float64           `json:"confidence,omitempty" validate:"gte=0,lte=1"`
}

// DefaultFeatures is substituted whenever feature extraction fails.
func DefaultFeatures() FeatureDescription {
	return FeatureDescription{
		Category: "t-shirt",
		Color: Color{
			Primary:   "blue",
			Secondary: "white",
		},
		Pattern: "solid",
		Style:   "casual",
	}
}
