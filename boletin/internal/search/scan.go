// CLAUDE:SUMMARY Per-snapshot scan shared by historical and live search: panic-isolated parser calls, date tagging, per-source dedup and sort.
package search

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/hazyhaar/boletin/boletin/internal/dedup"
	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/boletin/internal/metrics"
	"github.com/hazyhaar/boletin/boletin/internal/parse"
)

// scanner applies the parsers to pages and accumulates one source's results.
type scanner struct {
	parsers map[match.Source]parse.Parser
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newScanner(logger *slog.Logger, m *metrics.Metrics) scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return scanner{parsers: parse.All(logger), logger: logger, metrics: m}
}

// scanPage adds the announcements and mentions of one page to set.
func (s scanner) scanPage(set *match.MatchSet, p *plan, raw, date string) {
	page, err := parse.Load(raw, date)
	if err != nil {
		s.metrics.ParserError(string(set.Source))
		s.logger.Warn("search: unreadable snapshot", "source", string(set.Source), "date", date, "error", err)
		return
	}
	parser := s.parsers[set.Source]

	for _, muni := range p.municipalities {
		var frags []match.AnnouncementFragment
		err := s.guard(func() { frags = parser.Announcements(page, muni) })
		if err != nil {
			s.metrics.ParserError(string(set.Source))
			s.logger.Error("search: parser failed", "source", string(set.Source), "date", date, "municipality", muni, "error", err)
			continue
		}
		for _, f := range frags {
			if f.IsPlaceholder() {
				continue
			}
			set.Announcements = append(set.Announcements, match.Announcement{
				Municipality: muni,
				Prefix:       f.Prefix,
				Text:         f.Text,
				URL:          f.URL,
				Date:         date,
			})
		}
	}

	if len(p.queries) == 0 {
		return
	}
	var frags []match.MentionFragment
	if err := s.guard(func() { frags = parser.Mentions(page, p.queries) }); err != nil {
		s.metrics.ParserError(string(set.Source))
		s.logger.Error("search: mention scan failed", "source", string(set.Source), "date", date, "queries", len(p.queries), "error", err)
		return
	}
	for _, f := range frags {
		set.Mentions = append(set.Mentions, match.Mention{Query: f.Query, Text: f.Text, URL: f.URL, Date: date})
	}
}

// finish deduplicates mentions against announcements and sorts
// announcements by label, keeping date order within a label.
func finish(set *match.MatchSet) {
	set.Mentions = dedup.Mentions(set.Announcements, set.Mentions)
	sort.SliceStable(set.Announcements, func(i, j int) bool {
		return set.Announcements[i].Label() < set.Announcements[j].Label()
	})
	if set.Announcements == nil {
		set.Announcements = []match.Announcement{}
	}
	if set.Mentions == nil {
		set.Mentions = []match.Mention{}
	}
}

// guard runs fn and converts a panic into an error.
func (s scanner) guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn()
	return nil
}
