package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Keys used in sync_state.
const (
	KeyLastOpenProject = "last_open_project"
	KeySidebarPage     = "sidebar_page"
)

// GetState returns the value stored under key and whether it exists.
func (db *DB) GetState(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %s: %w", key, err)
	}
	return v, true, nil
}

// SetState stores value under key.
func (db *DB) SetState(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

// GetInt reads an integer state value; missing or malformed values yield 0.
func (db *DB) GetInt(ctx context.Context, key string) (int64, error) {
	v, ok, err := db.GetState(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// SetInt stores an integer state value.
func (db *DB) SetInt(ctx context.Context, key string, n int64) error {
	return db.SetState(ctx, key, strconv.FormatInt(n, 10))
}
