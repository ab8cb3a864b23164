package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("catalog item not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertIfAbsent stores the item unless its content key is already known.
// The insert is a conflict-free no-op on redelivery, which makes ingestion
// idempotent without any higher-level locking. Returns whether a row was
// actually written.
func (r *Repository) InsertIfAbsent(ctx context.Context, item *Item) (bool, error) {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO catalog_items (content_key, slug, title, year, caption, file_id, file_size, mime_type, channel_id, message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_key) DO NOTHING
	`, item.ContentKey, item.Slug, item.Title, item.Year, item.Caption, item.FileID,
		item.FileSize, item.MimeType, item.ChannelID, item.MessageID,
		item.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetBySlug returns the first item stored under slug. When two distinct
// files normalized to the same slug, the first writer wins; the later one
// stays reachable by content key only.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Item, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT content_key, slug, title, year, caption, file_id, file_size, mime_type, channel_id, message_id, created_at
		FROM catalog_items
		WHERE slug = ?
		ORDER BY created_at
		LIMIT 1
	`, slug)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

// ListRecent returns items ordered by insertion time, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit, offset int) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT content_key, slug, title, year, caption, file_id, file_size, mime_type, channel_id, message_id, created_at
		FROM catalog_items
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

// ListByCategoryHint returns recent items whose title or caption contains
// the hint as a substring.
func (r *Repository) ListByCategoryHint(ctx context.Context, hint string, limit, offset int) ([]Item, error) {
	pattern := "%" + strings.ToLower(hint) + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT content_key, slug, title, year, caption, file_id, file_size, mime_type, channel_id, message_id, created_at
		FROM catalog_items
		WHERE LOWER(title) LIKE ? OR LOWER(caption) LIKE ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, pattern, pattern, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

// SearchCandidates returns up to max items whose title contains any of the
// tokens (OR semantics), optionally restricted by a category hint. It is a
// deliberately loose superset; ranking happens in the search engine.
func (r *Repository) SearchCandidates(ctx context.Context, tokens []string, categoryHint string, max int) ([]Item, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(tokens)+2)
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString("LOWER(title) LIKE ?")
		args = append(args, "%"+tok+"%")
	}

	query := `
		SELECT content_key, slug, title, year, caption, file_id, file_size, mime_type, channel_id, message_id, created_at
		FROM catalog_items
		WHERE (` + sb.String() + `)`
	if categoryHint != "" {
		query += " AND LOWER(title) LIKE ?"
		args = append(args, "%"+strings.ToLower(categoryHint)+"%")
	}
	query += " LIMIT ?"
	args = append(args, max)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectItems(rows)
}

// Count returns the number of cataloged items.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog_items`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var createdAt string

	err := row.Scan(&item.ContentKey, &item.Slug, &item.Title, &item.Year,
		&item.Caption, &item.FileID, &item.FileSize, &item.MimeType,
		&item.ChannelID, &item.MessageID, &createdAt)
	if err != nil {
		return nil, err
	}

	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
