// CLAUDE:SUMMARY Live search: fetches each source's page for one date and scans it; a failed fetch marks only that source.
package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/boletin/boletin/internal/fetch"
	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/boletin/internal/metrics"
)

// Getter fetches one page. *fetch.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// LiveQuery is a search against the pages published on Date (YYYYMMDD).
type LiveQuery struct {
	Municipalities []string       `json:"municipalities"`
	Keywords       []string       `json:"keywords"`
	Sources        []match.Source `json:"sources"`
	Date           string         `json:"date"`
}

// Live searches freshly fetched pages.
type Live struct {
	getter Getter
	scan   scanner
}

// NewLive creates a Live searcher. logger and m may be nil.
func NewLive(g Getter, logger *slog.Logger, m *metrics.Metrics) *Live {
	return &Live{getter: g, scan: newScanner(logger, m)}
}

// Search fetches and scans every requested source. A source whose page
// cannot be fetched gets an empty MatchSet with FetchError set.
func (l *Live) Search(ctx context.Context, q LiveQuery) (match.Results, error) {
	p, err := newPlan(q.Municipalities, q.Keywords, q.Sources)
	if err != nil {
		return nil, err
	}
	if err := validateDate(q.Date); err != nil {
		return nil, err
	}
	start := time.Now()

	sets := make([]*match.MatchSet, len(p.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range p.sources {
		g.Go(func() error {
			url, _ := src.PageURL(q.Date)
			set := &match.MatchSet{Source: src, SourceURL: url}
			sets[i] = set
			res, err := l.getter.Get(gctx, url)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				l.scan.metrics.FetchError(string(src))
				l.scan.logger.Warn("search: live fetch failed", "source", string(src), "url", url, "error", err)
				set.FetchError = err.Error()
				finish(set)
				return nil
			}
			l.scan.scanPage(set, p, res.Body, q.Date)
			finish(set)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(match.Results, len(sets))
	for _, set := range sets {
		out[set.Source] = set
	}
	l.scan.metrics.SearchDone("live", time.Since(start))
	return out, nil
}
