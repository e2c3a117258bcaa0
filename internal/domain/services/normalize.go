// Package services contains domain business logic.
package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// diacriticStripper decomposes to NFD and drops combining marks, so
// "François" and "Francois" compare equal after normalization.
var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var normalizeReplacer = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'", // left single quotation mark
	"-", " ",
	"–", " ", // en dash
	"—", " ", // em dash
)

// Normalize canonicalizes text for matching: lowercase, diacritics stripped,
// curly apostrophes straightened, hyphens and dashes collapsed to spaces,
// whitespace collapsed. Total and idempotent.
func Normalize(text string) string {
	text = strings.ToLower(text)
	if stripped, _, err := transform.String(diacriticStripper, text); err == nil {
		text = stripped
	}
	text = normalizeReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// EscapeRegex escapes regex metacharacters so arbitrary names can be
// embedded safely inside word-boundary patterns.
func EscapeRegex(s string) string {
	return regexp.QuoteMeta(s)
}
