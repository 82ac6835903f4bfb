package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.Join(strings.Fields(name), " ")
}

// CanonicalClassName trims and upper-cases a class name and collapses inner
// whitespace, so "10-a " and "10-A" name the same roster.
func CanonicalClassName(name string) string {
	name = RemoveDiacritics(name)
	return strings.ToUpper(strings.Join(strings.Fields(name), " "))
}

// NameMatches reports whether query occurs in name, ignoring case and diacritics.
func NameMatches(name, query string) bool {
	return strings.Contains(NormalizePersonName(name), NormalizePersonName(query))
}
