package domain

import "strings"

// ColorKey is the closed set of color buckets used by the fallback catalog.
type ColorKey string

const (
	ColorBlue    ColorKey = "blue"
	ColorRed     ColorKey = "red"
	ColorGreen   ColorKey = "green"
	ColorBlack   ColorKey = "black"
	ColorWhite   ColorKey = "white"
	ColorDefault ColorKey = "default"
)

// colorAliases maps lowercase color names (English and French) to a key.
var colorAliases = map[string]ColorKey{
	"blue":  ColorBlue,
	"bleu":  ColorBlue,
	"red":   ColorRed,
	"rouge": ColorRed,
	"green": ColorGreen,
	"vert":  ColorGreen,
	"black": ColorBlack,
	"noir":  ColorBlack,
	"white": ColorWhite,
	"blanc": ColorWhite,
}

// ColorKeys returns every key, default last.
func ColorKeys() []ColorKey {
	return []ColorKey{ColorBlue, ColorRed, ColorGreen, ColorBlack, ColorWhite, ColorDefault}
}

// NormalizeColor maps a free-form color name onto a ColorKey.
// Unknown names map to ColorDefault.
func NormalizeColor(name string) ColorKey {
	if key, ok := colorAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return key
	}
	return ColorDefault
}
