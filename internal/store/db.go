// Package store is the daemon's local sqlite cache: the last known sidebar,
// pending sends and small bits of sync state.
package store

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"
)

// DB is a profile's console.db. Only one daemon opens it at a time; the
// profile lock is taken first.
type DB struct {
	*sql.DB
	path string
}

// Open connects to the cache at path. The schema is left alone until
// Migrate runs.
func Open(path string) (*DB, error) {
	q := url.Values{}
	q.Set("_journal_mode", "WAL")
	q.Set("_synchronous", "NORMAL")
	q.Set("_busy_timeout", "5000")
	q.Set("_foreign_keys", "on")
	db, err := sql.Open("sqlite3", path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open console cache %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping console cache %s: %w", path, err)
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the database file.
func (db *DB) Path() string { return db.path }
