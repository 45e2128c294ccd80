// CLAUDE:SUMMARY Historical search: loads archived snapshots for a range, scans each source in its own goroutine, merges deterministically.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/boletin/internal/metrics"
	"github.com/hazyhaar/boletin/boletin/internal/store"
)

// Archive is the read side of the snapshot store.
type Archive interface {
	Snapshots(ctx context.Context, from, to string, sources []match.Source) ([]*store.Snapshot, error)
}

// Aggregator searches the archive.
type Aggregator struct {
	archive Archive
	scan    scanner
}

// NewAggregator creates an Aggregator. logger and m may be nil.
func NewAggregator(archive Archive, logger *slog.Logger, m *metrics.Metrics) *Aggregator {
	return &Aggregator{archive: archive, scan: newScanner(logger, m)}
}

// Search returns one MatchSet per requested source, including sources with
// no snapshot in range. Parser failures are logged and skipped; only
// invalid input, archive failures and cancellation are errors.
func (a *Aggregator) Search(ctx context.Context, q Query) (match.Results, error) {
	p, err := q.validate()
	if err != nil {
		return nil, err
	}
	start := time.Now()

	snaps, err := a.archive.Snapshots(ctx, q.From, q.To, p.sources)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	bySource := make(map[match.Source][]*store.Snapshot, len(p.sources))
	for _, snap := range snaps {
		bySource[snap.Source] = append(bySource[snap.Source], snap)
	}

	sets := make([]*match.MatchSet, len(p.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range p.sources {
		g.Go(func() error {
			set := &match.MatchSet{Source: src, SourceURL: src.ArchiveURL()}
			for _, snap := range bySource[src] {
				if err := gctx.Err(); err != nil {
					return err
				}
				a.scan.scanPage(set, p, snap.HTML, snap.Date)
			}
			finish(set)
			sets[i] = set
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
	a.scan.metrics.SearchDone("historical", time.Since(start))
	anns, ments := out.Counts()
	a.scan.logger.Info("search: historical done",
		"from", q.From, "to", q.To, "snapshots", len(snaps),
		"announcements", anns, "mentions", ments, "duration", time.Since(start))
	return out, nil
}
