package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	parentheticalRegex = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	separatorRegex     = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// Normalize folds a free-text label into the form used for catalog lookup:
// diacritics stripped, lower-cased, parenthetical qualifiers dropped and any
// run of punctuation, underscores or whitespace collapsed to a single space.
// Normalize is idempotent.
func Normalize(label string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), label)
	if err != nil {
		stripped = label
	}
	stripped = parentheticalRegex.ReplaceAllString(stripped, " ")
	stripped = strings.ToLower(stripped)
	stripped = separatorRegex.ReplaceAllString(stripped, " ")
	return strings.TrimSpace(stripped)
}
