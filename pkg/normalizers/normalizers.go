// Package normalizers provides field normalization functions for match comparison
package normalizers

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeName lowercases, strips punctuation, and collapses whitespace.
// Used for all name comparisons so "Ch. Margaux " and "ch margaux" compare equal.
func NormalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(b.String(), " "))
}

// DigitsOnly removes all non-digit characters. GTIN values arrive with
// inconsistent separators from supplier files.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeIdentifier trims and uppercases an identifier value (LWIN, SKUs)
func NormalizeIdentifier(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NamesEqual reports whether two names are equal after normalization
func NamesEqual(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b) && NormalizeName(a) != ""
}

// NameContains reports whether the normalized needle is a substring of the
// normalized haystack
func NameContains(haystack, needle string) bool {
	h := NormalizeName(haystack)
	n := NormalizeName(needle)
	return n != "" && strings.Contains(h, n)
}
