package boletin

import (
	"github.com/hazyhaar/boletin/boletin/internal/digest"
	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/boletin/internal/search"
	"github.com/hazyhaar/boletin/boletin/internal/store"
)

// Source identifies a gazette.
type Source = match.Source

const (
	SourceRegional   = match.SourceRegional
	SourceProvincial = match.SourceProvincial
	SourceNational   = match.SourceNational
)

// AllSources lists the gazettes in report order.
var AllSources = match.AllSources

// ParseSource accepts a gazette code or kind name.
func ParseSource(s string) (Source, error) { return match.ParseSource(s) }

type (
	Results      = match.Results
	MatchSet     = match.MatchSet
	Announcement = match.Announcement
	Mention      = match.Mention

	Query     = search.Query
	LiveQuery = search.LiveQuery

	Preference     = store.Preference
	Stats          = store.Stats
	SearchLogEntry = store.SearchLogEntry

	DigestOutcome = digest.Outcome
)

// Format is a report output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
)

// ParseFormat accepts "html" (default when empty), "md" and "markdown".
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "html":
		return FormatHTML, true
	case "md", "markdown":
		return FormatMarkdown, true
	}
	return "", false
}

// IngestSummary reports a refresh run.
type IngestSummary struct {
	Stored map[Source]int `json:"stored"`
	Pruned int64          `json:"pruned"`
}
