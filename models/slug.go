package models

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// whitespaceExp matches runs of whitespace, which become a single dash in slugs
var whitespaceExp *regexp.Regexp = regexp.MustCompile(`\s+`)

// invalidSlugCharsExp matches characters which are not allowed in slugs
var invalidSlugCharsExp *regexp.Regexp = regexp.MustCompile(`[^a-z0-9_-]`)

// dashesExp matches runs of dashes
var dashesExp *regexp.Regexp = regexp.MustCompile(`-{2,}`)

// SlugExp matches a valid slug
var SlugExp *regexp.Regexp = regexp.MustCompile(`^[a-z0-9_]+(-[a-z0-9_]+)*$`)

// Slugify converts text into a URL safe slug. Accents are stripped so that
// "Promoção de Verão" becomes "promocao-de-verao".
func Slugify(text string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	s, _, err := transform.String(stripMarks, text)
	if err != nil {
		s = text
	}

	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceExp.ReplaceAllString(s, "-")
	s = invalidSlugCharsExp.ReplaceAllString(s, "")
	s = dashesExp.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}
