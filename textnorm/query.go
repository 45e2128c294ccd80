// CLAUDE:SUMMARY Keyword query parsing: comma-separated conjunctive terms, all required in the same text unit.
package textnorm

import "strings"

// Query is one configured keyword search. Raw is the phrase as the user typed
// it; terms are its comma-separated parts, normalized.
type Query struct {
	Raw   string
	terms []string
}

// ParseQuery splits raw on commas into normalized terms. Empty parts are
// dropped. ok is false when no term survives, since a query without terms
// would otherwise match every text unit.
func ParseQuery(raw string) (q Query, ok bool) {
	q.Raw = strings.TrimSpace(raw)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		q.terms = append(q.terms, Normalize(part))
	}
	return q, len(q.terms) > 0
}

// ParseQueries parses each raw query, skipping those with no usable terms.
// Order is preserved.
func ParseQueries(raws []string) []Query {
	out := make([]Query, 0, len(raws))
	for _, raw := range raws {
		if q, ok := ParseQuery(raw); ok {
			out = append(out, q)
		}
	}
	return out
}

// Terms returns a copy of the normalized terms.
func (q Query) Terms() []string {
	return append([]string(nil), q.terms...)
}

// MatchNormalized reports whether every term occurs in normalized, which the
// caller must already have passed through Normalize.
func (q Query) MatchNormalized(normalized string) bool {
	if len(q.terms) == 0 {
		return false
	}
	for _, t := range q.terms {
		if !strings.Contains(normalized, t) {
			return false
		}
	}
	return true
}

// Match normalizes text and reports whether every term occurs in it.
func (q Query) Match(text string) bool {
	return q.MatchNormalized(Normalize(text))
}
