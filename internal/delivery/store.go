package delivery

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// StoreQueue is the durable retraction queue. Entries survive process
// restarts, so a forwarded copy is retracted even if the service bounced
// in between.
type StoreQueue struct {
	db *sql.DB
}

func NewStoreQueue(db *sql.DB) *StoreQueue {
	return &StoreQueue{db: db}
}

func (q *StoreQueue) Enqueue(ctx context.Context, p *PendingRetraction) error {
	p.ID = ulid.Make().String()
	p.CreatedAt = time.Now().UTC()

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO pending_retractions (id, chat_id, message_id, due_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, message_id) DO NOTHING
	`, p.ID, p.ChatID, p.MessageID,
		p.DueAt.UTC().Format(time.RFC3339), p.CreatedAt.Format(time.RFC3339))
	return err
}

func (q *StoreQueue) Due(ctx context.Context, now time.Time) ([]PendingRetraction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, chat_id, message_id, due_at, created_at
		FROM pending_retractions
		WHERE due_at <= ?
		ORDER BY due_at
	`, now.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []PendingRetraction
	for rows.Next() {
		var p PendingRetraction
		var dueAt, createdAt string
		if err := rows.Scan(&p.ID, &p.ChatID, &p.MessageID, &dueAt, &createdAt); err != nil {
			return nil, err
		}
		p.DueAt, _ = time.Parse(time.RFC3339, dueAt)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		due = append(due, p)
	}
	return due, rows.Err()
}

func (q *StoreQueue) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	_, err := q.db.ExecContext(ctx,
		"DELETE FROM pending_retractions WHERE id IN ("+placeholders+")", args...)
	return err
}
