package backup

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cinevault/api/internal/catalog"
)

// exportLimit bounds one CSV export. Far beyond any realistic channel.
const exportLimit = 500000

// Gateway is the slice of the messaging gateway the backup worker needs.
type Gateway interface {
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}

// Worker periodically exports the catalog as CSV and sends it to the
// admin chat.
type Worker struct {
	repo      *catalog.Repository
	gateway   Gateway
	adminChat int64
	interval  time.Duration
}

func NewWorker(repo *catalog.Repository, gateway Gateway, adminChat int64, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &Worker{repo: repo, gateway: gateway, adminChat: adminChat, interval: interval}
}

// Start runs backup passes until the context is cancelled. Without an
// admin chat configured there is nowhere to send backups, so the worker
// exits immediately.
func (w *Worker) Start(ctx context.Context) {
	if w.adminChat == 0 {
		slog.Info("catalog backup disabled, no admin chat configured")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("catalog backup worker started", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("catalog backup worker stopped")
			return
		case <-ticker.C:
			if err := w.Run(ctx); err != nil {
				slog.Warn("catalog backup failed", "error", err)
			}
		}
	}
}

// Run performs a single export-and-send pass.
func (w *Worker) Run(ctx context.Context) error {
	items, err := w.repo.ListRecent(ctx, exportLimit, 0)
	if err != nil {
		return fmt.Errorf("exporting catalog: %w", err)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"content_key", "slug", "title", "year", "file_id", "created_at"})
	for _, item := range items {
		year := ""
		if item.Year != nil {
			year = strconv.Itoa(*item.Year)
		}
		_ = cw.Write([]string{item.ContentKey, item.Slug, item.Title, year, item.FileID, item.CreatedAt.Format(time.RFC3339)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	filename := fmt.Sprintf("catalog_backup_%d.csv", time.Now().Unix())
	caption := fmt.Sprintf("Catalog backup: %d items", len(items))
	if err := w.gateway.SendDocument(ctx, w.adminChat, filename, buf.Bytes(), caption); err != nil {
		return fmt.Errorf("sending backup: %w", err)
	}

	slog.Info("catalog backup sent", "items", len(items))
	return nil
}
