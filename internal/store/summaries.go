package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/chat"
)

// SaveSummaries replaces the cached sidebar with list, keeping its order.
func (db *DB) SaveSummaries(ctx context.Context, list []chat.Summary) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects`); err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO projects (project_id, title, reference_number, last_body, last_added_at,
			last_media_count, unread_count, members_json, position, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UnixMilli()
	for i, s := range list {
		members, err := json.Marshal(s.Members)
		if err != nil {
			return fmt.Errorf("encode members of project %d: %w", s.ProjectID, err)
		}
		var body sql.NullString
		var addedAt sql.NullInt64
		var mediaCount int
		if s.LastMessage != nil {
			body = sql.NullString{String: s.LastMessage.Body, Valid: true}
			addedAt = sql.NullInt64{Int64: s.LastMessage.AddedAt.UnixMilli(), Valid: true}
			mediaCount = s.LastMessage.MediaCount
		}
		if _, err := stmt.ExecContext(ctx, s.ProjectID, s.Title, s.ReferenceNumber, body, addedAt,
			mediaCount, max(s.UnreadCount, 0), string(members), i, now); err != nil {
			return fmt.Errorf("insert project %d: %w", s.ProjectID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summaries: %w", err)
	}
	return nil
}

// LoadSummaries returns the cached sidebar in display order.
func (db *DB) LoadSummaries(ctx context.Context) ([]chat.Summary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project_id, title, reference_number, last_body, last_added_at,
			last_media_count, unread_count, members_json
		FROM projects ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []chat.Summary
	for rows.Next() {
		var (
			s          chat.Summary
			body       sql.NullString
			addedAt    sql.NullInt64
			mediaCount int
			members    string
		)
		if err := rows.Scan(&s.ProjectID, &s.Title, &s.ReferenceNumber, &body, &addedAt,
			&mediaCount, &s.UnreadCount, &members); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if body.Valid {
			s.LastMessage = &chat.Preview{
				Body:       body.String,
				AddedAt:    time.UnixMilli(addedAt.Int64),
				MediaCount: mediaCount,
			}
		}
		if err := json.Unmarshal([]byte(members), &s.Members); err != nil {
			return nil, fmt.Errorf("decode members of project %d: %w", s.ProjectID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
