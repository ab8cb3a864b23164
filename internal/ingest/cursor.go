package ingest

import (
	"context"
	"database/sql"
	"errors"
)

// CursorStore persists the backlog replayer's update offset so a restart
// resumes where the previous run left off.
type CursorStore struct {
	db *sql.DB
}

func NewCursorStore(db *sql.DB) *CursorStore {
	return &CursorStore{db: db}
}

// Get returns the saved position for name, or 0 when none exists.
func (c *CursorStore) Get(ctx context.Context, name string) (int64, error) {
	var pos int64
	err := c.db.QueryRowContext(ctx, `
		SELECT position FROM replay_cursors WHERE name = ?
	`, name).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return pos, err
}

func (c *CursorStore) Set(ctx context.Context, name string, position int64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO replay_cursors (name, position) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET position = excluded.position
	`, name, position)
	return err
}
