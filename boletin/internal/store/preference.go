// CLAUDE:SUMMARY Preference CRUD with JSON-encoded list columns, and the due-preference query used by digest dispatch.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/boletin/boletin/internal/match"
)

const preferenceColumns = `user_id, email, municipalities, sources, keywords, send_time, expires_on, updated_at`

// UpsertPreference inserts or replaces the preference for p.UserID.
func (s *Store) UpsertPreference(ctx context.Context, p *Preference) error {
	p.UpdatedAt = time.Now().UnixMilli()
	munis, err := encodeList(p.Municipalities)
	if err != nil {
		return err
	}
	srcs, err := encodeList(p.Sources)
	if err != nil {
		return err
	}
	kws, err := encodeList(p.Keywords)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx,
		`INSERT INTO preferences (`+preferenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			municipalities = excluded.municipalities,
			sources = excluded.sources,
			keywords = excluded.keywords,
			send_time = excluded.send_time,
			expires_on = excluded.expires_on,
			updated_at = excluded.updated_at`,
		p.UserID, p.Email, munis, srcs, kws, p.SendTime, p.ExpiresOn, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert preference %s: %w", p.UserID, err)
	}
	return nil
}

// GetPreference returns the preference for userID, or nil if absent.
func (s *Store) GetPreference(ctx context.Context, userID string) (*Preference, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+preferenceColumns+` FROM preferences WHERE user_id = ?`, userID)
	p, err := scanPreference(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// ListPreferences returns every preference ordered by user ID.
func (s *Store) ListPreferences(ctx context.Context) ([]*Preference, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+preferenceColumns+` FROM preferences ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	return collectPreferences(rows)
}

// DuePreferences returns the preferences scheduled at sendTime (HH:MM) whose
// subscription is still valid on today (YYYYMMDD).
func (s *Store) DuePreferences(ctx context.Context, sendTime, today string) ([]*Preference, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+preferenceColumns+` FROM preferences
		WHERE send_time = ? AND expires_on >= ? AND email != ''
		ORDER BY user_id`, sendTime, today)
	if err != nil {
		return nil, err
	}
	return collectPreferences(rows)
}

// DeletePreference removes the preference for userID. It reports whether a
// row existed.
func (s *Store) DeletePreference(ctx context.Context, userID string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM preferences WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("delete preference %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreference(row rowScanner) (*Preference, error) {
	var p Preference
	var munis, srcs, kws string
	if err := row.Scan(&p.UserID, &p.Email, &munis, &srcs, &kws, &p.SendTime, &p.ExpiresOn, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(munis), &p.Municipalities); err != nil {
		return nil, fmt.Errorf("decode municipalities: %w", err)
	}
	var raw []string
	if err := json.Unmarshal([]byte(srcs), &raw); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	for _, r := range raw {
		p.Sources = append(p.Sources, match.Source(r))
	}
	if err := json.Unmarshal([]byte(kws), &p.Keywords); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	return &p, nil
}

func collectPreferences(rows *sql.Rows) ([]*Preference, error) {
	defer rows.Close()
	var out []*Preference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func encodeList[T any](v []T) (string, error) {
	if v == nil {
		return "[]", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}
