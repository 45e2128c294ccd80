// CLAUDE:SUMMARY Snapshot ingestion: per-source date windows, skip already-archived days, fetch, upsert, fixed ctx-aware pause.
// CLAUDE:EXPORTS Ingester, Config, Getter, New, DateRange, LastDays
// Package ingest fills the archive with daily gazette pages.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/boletin/boletin/internal/fetch"
	"github.com/hazyhaar/boletin/boletin/internal/match"
	"github.com/hazyhaar/boletin/boletin/internal/metrics"
	"github.com/hazyhaar/boletin/boletin/internal/store"
)

// Getter fetches one page. *fetch.Fetcher satisfies it.
type Getter interface {
	Get(ctx context.Context, url string) (*fetch.Result, error)
}

// Config configures the ingester.
type Config struct {
	Pause time.Duration // between consecutive requests. Default: 2s. Negative disables.
}

func (c *Config) defaults() {
	if c.Pause == 0 {
		c.Pause = 2 * time.Second
	}
}

// Ingester fetches missing snapshots and stores them.
type Ingester struct {
	store   *store.Store
	getter  Getter
	pause   time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an Ingester. logger and m may be nil.
func New(st *store.Store, g Getter, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Ingester {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{store: st, getter: g, pause: cfg.Pause, logger: logger, metrics: m}
}

// Run archives every (date, source) pair not yet stored. A date whose fetch
// fails is logged and skipped. It returns the number of pages stored per
// source; the error is non-nil only for store failures or cancellation.
func (in *Ingester) Run(ctx context.Context, dates []string, sources []match.Source) (map[match.Source]int, error) {
	stored := make(map[match.Source]int, len(sources))
	first := true
	for _, src := range sources {
		existing, err := in.store.ExistingDates(ctx, src, dates)
		if err != nil {
			return stored, fmt.Errorf("ingest %s: %w", src, err)
		}
		for _, date := range dates {
			if existing[date] {
				continue
			}
			if !first {
				if err := sleepCtx(ctx, in.pause); err != nil {
					return stored, err
				}
			}
			first = false

			ok, err := in.one(ctx, src, date)
			if err != nil {
				return stored, err
			}
			if ok {
				stored[src]++
			}
		}
		in.logger.Info("ingest: source done", "source", string(src), "stored", stored[src], "skipped", len(existing))
	}
	return stored, nil
}

// one fetches and stores a single page. ok is false when the page was
// skipped; err is reserved for failures that must stop the run.
func (in *Ingester) one(ctx context.Context, src match.Source, date string) (ok bool, err error) {
	url, err := src.PageURL(date)
	if err != nil {
		in.logger.Warn("ingest: bad date", "source", string(src), "date", date, "error", err)
		return false, nil
	}
	res, err := in.getter.Get(ctx, url)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		in.metrics.FetchError(string(src))
		in.logger.Warn("ingest: fetch failed", "source", string(src), "date", date, "url", url, "error", err)
		return false, nil
	}
	if strings.TrimSpace(res.Body) == "" {
		in.logger.Warn("ingest: empty page", "source", string(src), "date", date)
		return false, nil
	}
	if err := in.store.UpsertSnapshot(ctx, date, src, res.Body); err != nil {
		return false, fmt.Errorf("ingest %s/%s: %w", src, date, err)
	}
	in.metrics.SnapshotUpserted(string(src))
	in.logger.Debug("ingest: stored", "source", string(src), "date", date, "bytes", len(res.Body))
	return true, nil
}

// DateRange returns every YYYYMMDD date from from to to inclusive.
func DateRange(from, to string) ([]string, error) {
	start, err := time.Parse(match.DateLayout, from)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", from, err)
	}
	end, err := time.Parse(match.DateLayout, to)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", to, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("range %s..%s is inverted", from, to)
	}
	var out []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d.Format(match.DateLayout))
	}
	return out, nil
}

// LastDays returns the n days ending at now (inclusive), oldest first.
func LastDays(now time.Time, n int) []string {
	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, now.AddDate(0, 0, -i).Format(match.DateLayout))
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
