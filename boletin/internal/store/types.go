package store

import "github.com/hazyhaar/boletin/boletin/internal/match"

// Snapshot is one stored raw page for a (date, source) pair.
type Snapshot struct {
	Date        string // YYYYMMDD
	Source      match.Source
	HTML        string
	ContentHash string
	FetchedAt   int64 // unix ms
}

// Stats summarises the archive.
type Stats struct {
	Snapshots     int                  `json:"snapshots"`
	PerSource     map[match.Source]int `json:"per_source"`
	FirstDate     string               `json:"first_date,omitempty"`
	LastDate      string               `json:"last_date,omitempty"`
	LastFetchedAt int64                `json:"last_fetched_at,omitempty"`
	Preferences   int                  `json:"preferences"`
	Searches      int                  `json:"searches"`
}

// Preference is one user's monitoring configuration.
type Preference struct {
	UserID         string         `json:"user_id"`
	Email          string         `json:"email"`
	Municipalities []string       `json:"municipalities"`
	Sources        []match.Source `json:"sources"`
	Keywords       []string       `json:"keywords"`
	SendTime       string         `json:"send_time"`  // HH:MM, local to the configured timezone
	ExpiresOn      string         `json:"expires_on"` // YYYYMMDD, inclusive
	UpdatedAt      int64          `json:"updated_at"`
}

// SearchLogEntry records one search run.
type SearchLogEntry struct {
	ID            string `json:"id"`
	Mode          string `json:"mode"` // historical | live | digest
	ParamsJSON    string `json:"params"`
	Announcements int    `json:"announcements"`
	Mentions      int    `json:"mentions"`
	DurationMs    int64  `json:"duration_ms"`
	ErrorMessage  string `json:"error,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}
