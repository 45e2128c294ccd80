// CLAUDE:SUMMARY Archive schema: snapshots unique on (date, source), preferences, search_log.
package store

import (
	"database/sql"
	"fmt"
)

// Schema is the complete archive schema.
const Schema = `
-- Raw gazette pages, one per publication day and source
CREATE TABLE IF NOT EXISTS snapshots (
    date            TEXT NOT NULL,
    source          TEXT NOT NULL,
    html            TEXT NOT NULL,
    content_hash    TEXT NOT NULL,
    fetched_at      INTEGER NOT NULL,
    UNIQUE(date, source)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_source_date ON snapshots(source, date);

-- Per-user monitoring preferences
CREATE TABLE IF NOT EXISTS preferences (
    user_id         TEXT PRIMARY KEY,
    email           TEXT NOT NULL DEFAULT '',
    municipalities  TEXT NOT NULL DEFAULT '[]',
    sources         TEXT NOT NULL DEFAULT '[]',
    keywords        TEXT NOT NULL DEFAULT '[]',
    send_time       TEXT NOT NULL DEFAULT '',
    expires_on      TEXT NOT NULL DEFAULT '',
    updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_preferences_send_time ON preferences(send_time);

-- Historical search log (observability)
CREATE TABLE IF NOT EXISTS search_log (
    id              TEXT PRIMARY KEY,
    mode            TEXT NOT NULL,
    params_json     TEXT NOT NULL DEFAULT '{}',
    announcements   INTEGER NOT NULL DEFAULT 0,
    mentions        INTEGER NOT NULL DEFAULT 0,
    duration_ms     INTEGER NOT NULL DEFAULT 0,
    error_message   TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_log_time ON search_log(created_at DESC);
`

// ApplySchema creates all tables and indexes.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}
