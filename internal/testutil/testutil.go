package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/cinevault/api/internal/database"
)

// TestDB creates an in-memory SQLite database with migrations applied.
// The database is automatically closed when the test completes.
func TestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		t.Fatalf("running migrations: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db.DB
}

// TestItem describes a catalog row created by CreateTestItem.
type TestItem struct {
	ContentKey string
	Slug       string
	Title      string
	Year       *int
	FileID     string
	ChannelID  int64
	MessageID  int64
	CreatedAt  time.Time
}

// CreateTestItem inserts a catalog row directly, bypassing the repository.
// ContentKey and FileID are derived from the slug so each slug is one row.
func CreateTestItem(t *testing.T, db *sql.DB, slug, title string, year *int) *TestItem {
	t.Helper()

	now := time.Now().UTC()
	item := &TestItem{
		ContentKey: "key-" + slug,
		Slug:       slug,
		Title:      title,
		Year:       year,
		FileID:     "file-" + slug,
		ChannelID:  -100100,
		MessageID:  int64(len(slug)),
		CreatedAt:  now,
	}

	_, err := db.ExecContext(context.Background(), `
		INSERT INTO catalog_items (content_key, slug, title, year, caption, file_id, channel_id, message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ContentKey, item.Slug, item.Title, item.Year, title, item.FileID,
		item.ChannelID, item.MessageID, now.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("creating test item: %v", err)
	}

	return item
}
