// CLAUDE:SUMMARY Locale-independent text canonicalization (NFKD, strip combining marks, lowercase) used as the sole equality primitive.
// CLAUDE:EXPORTS Normalize, Contains, Clean
// Package textnorm canonicalizes gazette text for accent- and case-insensitive
// comparison, and parses comma-separated keyword queries with AND semantics.
//
// Every "contains" check in the parsers goes through Normalize on both sides.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize decomposes s (NFKD), drops combining marks and lowercases the result.
// An empty input yields an empty string.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	// transform.Chain keeps state, so one per call.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		// Only reachable on invalid transformer state; fall back to plain lowercasing.
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// Contains reports whether the normalized form of haystack contains the
// normalized form of needle.
func Contains(haystack, needle string) bool {
	return strings.Contains(Normalize(haystack), Normalize(needle))
}

// Clean trims s and collapses internal whitespace runs (newlines, tabs,
// non-breaking spaces) to single spaces.
func Clean(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
