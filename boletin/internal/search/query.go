// CLAUDE:SUMMARY Search request validation: trimmed municipalities, parsed keyword queries, defaulted/deduplicated sources, YYYYMMDD range checks.
// Package search runs municipality and keyword searches over archived
// snapshots (Aggregator) or freshly fetched pages (Live).
package search

import (
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/textnorm"
)

var (
	// ErrEmptyQuery is returned when neither municipalities nor keyword
	// queries were given.
	ErrEmptyQuery = errors.New("no municipalities and no keyword queries")
	// ErrInvalidInput covers malformed dates, unknown sources and inverted ranges.
	ErrInvalidInput = errors.New("invalid search input")
	// ErrStoreUnavailable wraps archive failures.
	ErrStoreUnavailable = errors.New("archive store unavailable")
)

// Query is a historical search request. From and To are YYYYMMDD and
// inclusive. No sources means all sources.
type Query struct {
	Municipalities []string       `json:"municipalities"`
	Keywords       []string       `json:"keywords"`
	Sources        []match.Source `json:"sources"`
	From           string         `json:"from"`
	To             string         `json:"to"`
}

// plan is a validated request.
type plan struct {
	municipalities []string
	queries        []textnorm.Query
	sources        []match.Source
}

func newPlan(municipalities, keywords []string, sources []match.Source) (*plan, error) {
	p := &plan{queries: textnorm.ParseQueries(keywords)}
	seen := make(map[string]bool)
	for _, m := range municipalities {
		m = textnorm.Clean(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		p.municipalities = append(p.municipalities, m)
	}
	if len(p.municipalities) == 0 && len(p.queries) == 0 {
		return nil, ErrEmptyQuery
	}

	if len(sources) == 0 {
		sources = match.AllSources
	}
	want := make(map[match.Source]bool, len(sources))
	for _, s := range sources {
		if !s.Valid() {
			return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, s)
		}
		want[s] = true
	}
	for _, s := range match.AllSources {
		if want[s] {
			p.sources = append(p.sources, s)
		}
	}
	return p, nil
}

func validateDate(d string) error {
	if _, err := time.Parse(match.DateLayout, d); err != nil {
		return fmt.Errorf("%w: date %q is not YYYYMMDD", ErrInvalidInput, d)
	}
	return nil
}

func (q Query) validate() (*plan, error) {
	p, err := newPlan(q.Municipalities, q.Keywords, q.Sources)
	if err != nil {
		return nil, err
	}
	if err := validateDate(q.From); err != nil {
		return nil, err
	}
	if err := validateDate(q.To); err != nil {
		return nil, err
	}
	if q.From > q.To {
		return nil, fmt.Errorf("%w: from %s is after to %s", ErrInvalidInput, q.From, q.To)
	}
	return p, nil
}
