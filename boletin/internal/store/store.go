// Package store is the archive of raw gazette snapshots, plus the user
// preference records and the search log that sit beside it.
package store

import "database/sql"

// Store wraps the archive database.
type Store struct {
	DB *sql.DB
}

// NewStore creates a Store from an already-opened database connection. The
// schema must already be applied.
func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.DB.Close()
}
