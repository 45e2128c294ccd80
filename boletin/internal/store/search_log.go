package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertSearchLog records a search run. ID and CreatedAt are filled when empty.
func (s *Store) InsertSearchLog(ctx context.Context, e *SearchLogEntry) error {
	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("search log id: %w", err)
		}
		e.ID = id.String()
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().UnixMilli()
	}
	if e.ParamsJSON == "" {
		e.ParamsJSON = "{}"
	}
	_, err := s.exec(ctx,
		`INSERT INTO search_log (id, mode, params_json, announcements, mentions,
		duration_ms, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Mode, e.ParamsJSON, e.Announcements, e.Mentions,
		e.DurationMs, e.ErrorMessage, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert search log: %w", err)
	}
	return nil
}

// RecentSearches returns the latest search log entries, newest first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]*SearchLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, mode, params_json, announcements, mentions, duration_ms, error_message, created_at
		FROM search_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SearchLogEntry
	for rows.Next() {
		var e SearchLogEntry
		if err := rows.Scan(&e.ID, &e.Mode, &e.ParamsJSON, &e.Announcements, &e.Mentions,
			&e.DurationMs, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search log: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
