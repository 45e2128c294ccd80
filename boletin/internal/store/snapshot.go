// CLAUDE:SUMMARY Snapshot archive: idempotent upsert, ordered range query, existing-date lookup, stats and retention prune.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/boletin/boletin/internal/match"
)

// UpsertSnapshot stores html for (date, source), replacing any previous
// page for that key.
func (s *Store) UpsertSnapshot(ctx context.Context, date string, source match.Source, html string) error {
	sum := sha256.Sum256([]byte(html))
	_, err := s.exec(ctx,
		`INSERT INTO snapshots (date, source, html, content_hash, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date, source) DO UPDATE SET
			html = excluded.html,
			content_hash = excluded.content_hash,
			fetched_at = excluded.fetched_at`,
		date, string(source), html, hex.EncodeToString(sum[:]), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s/%s: %w", source, date, err)
	}
	return nil
}

// Snapshots returns every snapshot with date in [from, to] and source in
// sources, ascending by (date, source). No sources means no rows.
func (s *Store) Snapshots(ctx context.Context, from, to string, sources []match.Source) ([]*Snapshot, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(sources)+2)
	args = append(args, from, to)
	for _, src := range sources {
		args = append(args, string(src))
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT date, source, html, content_hash, fetched_at
		FROM snapshots
		WHERE date >= ? AND date <= ? AND source IN (`+placeholders(len(sources))+`)
		ORDER BY date ASC, source ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*Snapshot
	for rows.Next() {
		var snap Snapshot
		var src string
		if err := rows.Scan(&snap.Date, &src, &snap.HTML, &snap.ContentHash, &snap.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Source = match.Source(src)
		out = append(out, &snap)
	}
	return out, rows.Err()
}

// GetSnapshot returns the snapshot for (date, source), or nil if absent.
func (s *Store) GetSnapshot(ctx context.Context, date string, source match.Source) (*Snapshot, error) {
	snaps, err := s.Snapshots(ctx, date, date, []match.Source{source})
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return snaps[0], nil
}

// ExistingDates returns the subset of dates already archived for source.
func (s *Store) ExistingDates(ctx context.Context, source match.Source, dates []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(dates) == 0 {
		return found, nil
	}
	args := make([]any, 0, len(dates)+1)
	args = append(args, string(source))
	for _, d := range dates {
		args = append(args, d)
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT date FROM snapshots WHERE source = ? AND date IN (`+placeholders(len(dates))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query existing dates: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		found[d] = true
	}
	return found, rows.Err()
}

// PruneBefore deletes snapshots dated strictly before date and returns how
// many were removed.
func (s *Store) PruneBefore(ctx context.Context, date string) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM snapshots WHERE date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns aggregate counters for the archive.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := Stats{PerSource: make(map[match.Source]int)}
	rows, err := s.DB.QueryContext(ctx, `SELECT source, COUNT(*) FROM snapshots GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("stats by source: %w", err)
	}
	for rows.Next() {
		var src string
		var n int
		if err := rows.Scan(&src, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.PerSource[match.Source(src)] = n
		stats.Snapshots += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(MIN(date), ''), COALESCE(MAX(date), ''), COALESCE(MAX(fetched_at), 0) FROM snapshots`,
	).Scan(&stats.FirstDate, &stats.LastDate, &stats.LastFetchedAt)
	if err != nil {
		return nil, fmt.Errorf("stats range: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM preferences`).Scan(&stats.Preferences); err != nil {
		return nil, err
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_log`).Scan(&stats.Searches); err != nil {
		return nil, err
	}
	return &stats, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
