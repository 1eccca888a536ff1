package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samiuddin-code/datportal-sub005/internal/outbox"
)

var _ outbox.PendingStore = (*DB)(nil)

// SavePending inserts or updates a pending send.
func (db *DB) SavePending(ctx context.Context, p outbox.PendingSend) error {
	files, err := json.Marshal(p.Files)
	if err != nil {
		return fmt.Errorf("encode files: %w", err)
	}
	created, updated := p.CreatedAt, p.UpdatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if updated.IsZero() {
		updated = created
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO pending_sends (client_temp_id, project_id, kind, body, files_json, state, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_temp_id) DO UPDATE SET
			state = excluded.state,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at`,
		p.ClientTempID, p.ProjectID, string(p.Kind), p.Body, string(files), string(p.State), p.Error,
		created.UnixMilli(), updated.UnixMilli())
	if err != nil {
		return fmt.Errorf("save pending %s: %w", p.ClientTempID, err)
	}
	return nil
}

// DeletePending removes a settled send. Deleting a missing id is not an error.
func (db *DB) DeletePending(ctx context.Context, clientTempID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM pending_sends WHERE client_temp_id = ?`, clientTempID); err != nil {
		return fmt.Errorf("delete pending %s: %w", clientTempID, err)
	}
	return nil
}

// ListPending returns all pending sends, oldest first.
func (db *DB) ListPending(ctx context.Context) ([]outbox.PendingSend, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT client_temp_id, project_id, kind, body, files_json, state, error_message, created_at, updated_at
		FROM pending_sends ORDER BY created_at ASC, client_temp_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []outbox.PendingSend
	for rows.Next() {
		var (
			p                outbox.PendingSend
			kind, state      string
			files            string
			created, updated int64
		)
		if err := rows.Scan(&p.ClientTempID, &p.ProjectID, &kind, &p.Body, &files, &state, &p.Error, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		if err := json.Unmarshal([]byte(files), &p.Files); err != nil {
			return nil, fmt.Errorf("decode files of %s: %w", p.ClientTempID, err)
		}
		p.Kind = outbox.Kind(kind)
		p.State = outbox.State(state)
		p.CreatedAt = time.UnixMilli(created)
		p.UpdatedAt = time.UnixMilli(updated)
		out = append(out, p)
	}
	return out, rows.Err()
}
