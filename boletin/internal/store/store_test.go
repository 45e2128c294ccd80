package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/boletin/boletin/internal/match"
)

func TestApplySchema(t *testing.T) {
	// WHAT: Schema creates all tables.
	s := OpenMemory(t)
	for _, table := range []string{"snapshots", "preferences", "search_log"} {
		var name string
		err := s.DB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
	// Idempotent on an existing database.
	if err := ApplySchema(s.DB); err != nil {
		t.Fatalf("reapply schema: %v", err)
	}
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "boletines.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.UpsertSnapshot(context.Background(), "20240101", match.SourceNational, "<p></p>"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func TestUpsertSnapshot_Idempotent(t *testing.T) {
	// WHAT: Upserting the same (date, source) twice leaves exactly one row.
	// WHY: Re-scraping a day must replace, not duplicate.
	s := OpenMemory(t)
	ctx := context.Background()
	for range 2 {
		if err := s.UpsertSnapshot(ctx, "20240101", match.SourceNational, "<p>a</p>"); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	var n int
	s.DB.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n)
	if n != 1 {
		t.Fatalf("rows: got %d, want 1", n)
	}
}

func TestUpsertSnapshot_Replaces(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	s.UpsertSnapshot(ctx, "20240101", match.SourceRegional, "old")
	s.UpsertSnapshot(ctx, "20240101", match.SourceRegional, "new")

	got, err := s.GetSnapshot(ctx, "20240101", match.SourceRegional)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.HTML != "new" {
		t.Fatalf("got %+v, want html %q", got, "new")
	}
	if got.ContentHash == "" {
		t.Error("content hash not set")
	}
}

func TestGetSnapshot_Missing(t *testing.T) {
	s := OpenMemory(t)
	got, err := s.GetSnapshot(context.Background(), "20240101", match.SourceRegional)
	if err != nil || got != nil {
		t.Fatalf("got %+v, %v; want nil, nil", got, err)
	}
}

func TestSnapshots_RangeAndOrder(t *testing.T) {
	// WHAT: Range is inclusive, filtered by source, ordered by (date, source).
	s := OpenMemory(t)
	ctx := context.Background()
	seed := []struct {
		date string
		src  match.Source
	}{
		{"20240103", match.SourceNational},
		{"20240101", match.SourceRegional},
		{"20240102", match.SourceNational},
		{"20240101", match.SourceNational},
		{"20240104", match.SourceNational},
		{"20240102", match.SourceProvincial},
	}
	for _, sd := range seed {
		if err := s.UpsertSnapshot(ctx, sd.date, sd.src, "x"); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := s.Snapshots(ctx, "20240101", "20240103", []match.Source{match.SourceNational, match.SourceRegional})
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	want := []string{"20240101/BOE", "20240101/DOE", "20240102/BOE", "20240103/BOE"}
	if len(got) != len(want) {
		t.Fatalf("count: got %d, want %d", len(got), len(want))
	}
	for i, snap := range got {
		if key := snap.Date + "/" + string(snap.Source); key != want[i] {
			t.Errorf("[%d]: got %q, want %q", i, key, want[i])
		}
	}
}

func TestSnapshots_Empty(t *testing.T) {
	// WHAT: No match is an empty result, never an error.
	s := OpenMemory(t)
	got, err := s.Snapshots(context.Background(), "20240101", "20240101", match.AllSources)
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("count: got %d, want 0", len(got))
	}
}

func TestExistingDates(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	s.UpsertSnapshot(ctx, "20240101", match.SourceProvincial, "x")
	s.UpsertSnapshot(ctx, "20240103", match.SourceProvincial, "x")
	s.UpsertSnapshot(ctx, "20240102", match.SourceNational, "x")

	got, err := s.ExistingDates(ctx, match.SourceProvincial, []string{"20240101", "20240102", "20240103"})
	if err != nil {
		t.Fatalf("existing: %v", err)
	}
	if len(got) != 2 || !got["20240101"] || !got["20240103"] {
		t.Fatalf("got %v", got)
	}
}

func TestPruneBeforeAndStats(t *testing.T) {
	s := OpenMemory(t)
	ctx := context.Background()
	s.UpsertSnapshot(ctx, "20231201", match.SourceNational, "x")
	s.UpsertSnapshot(ctx, "20240101", match.SourceNational, "x")
	s.UpsertSnapshot(ctx, "20240102", match.SourceRegional, "x")

	n, err := s.PruneBefore(ctx, "20240101")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned: got %d, want 1", n)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Snapshots != 2 {
		t.Errorf("snapshots: got %d, want 2", stats.Snapshots)
	}
	if stats.PerSource[match.SourceRegional] != 1 {
		t.Errorf("per source: got %v", stats.PerSource)
	}
	if stats.FirstDate != "20240101" || stats.LastDate != "20240102" {
		t.Errorf("range: got %s..%s", stats.FirstDate, stats.LastDate)
	}
	if stats.LastFetchedAt == 0 {
		t.Error("last fetch not set")
	}
}
