package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// latinFolder maps accented Latin letters found in French and other western
// European product text to ASCII.
var latinFolder = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a", "á", "a", "ã", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i", "í", "i",
	"ô", "o", "ö", "o", "ó", "o", "õ", "o",
	"ù", "u", "û", "u", "ü", "u", "ú", "u",
	"ç", "c", "ñ", "n", "ÿ", "y",
	"œ", "oe", "æ", "ae", "ß", "ss",
)

// Generate creates a URL-friendly slug from the given text.
//
// Examples:
//   - "Acheter Vêtement" → "acheter-vetement"
//   - "Robe à fleurs" → "robe-a-fleurs"
//   - "T-shirt  bleu!" → "t-shirt-bleu"
func Generate(text string) string {
	slug := strings.ToLower(strings.TrimSpace(text))
	slug = latinFolder.Replace(slug)

	// Runs of anything else become one hyphen.
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}
