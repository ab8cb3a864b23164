package ingest

import (
	"context"
	"log/slog"

	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/metrics"
	"github.com/cinevault/api/internal/telegram"
)

// Caption text beyond this is release-note spam; the stored copy is capped.
const maxCaptionLen = 1000

// Pipeline turns content-channel posts into catalog records. The live
// webhook path and the backlog replayer both funnel through Ingest, so the
// two entry points share one normalization and dedup behavior.
type Pipeline struct {
	repo *catalog.Repository
}

func NewPipeline(repo *catalog.Repository) *Pipeline {
	return &Pipeline{repo: repo}
}

// Ingest catalogs the message's media attachment. It is idempotent under
// at-least-once delivery: re-ingesting a known content key is a no-op.
// Messages without an attachment and store failures are absorbed here;
// nothing propagates to the caller.
func (p *Pipeline) Ingest(ctx context.Context, msg *telegram.Message) {
	att, ok := msg.Attachment()
	if !ok {
		return
	}

	norm := catalog.Normalize(msg.Caption)
	if norm.Title == "" && att.FileName != "" {
		norm = catalog.Normalize(att.FileName)
	}

	title := norm.Title
	if title == "" {
		// Nothing human-readable to show; the file ID at least is unique.
		title = att.FileID
	}

	caption := catalog.TruncateRunes(msg.Caption, maxCaptionLen)

	item := &catalog.Item{
		ContentKey: att.ContentKey,
		Slug:       norm.Slug,
		Title:      title,
		Year:       norm.Year,
		Caption:    caption,
		FileID:     att.FileID,
		FileSize:   att.FileSize,
		MimeType:   att.MimeType,
		ChannelID:  msg.Chat.ID,
		MessageID:  msg.MessageID,
	}

	inserted, err := p.repo.InsertIfAbsent(ctx, item)
	if err != nil {
		slog.Warn("catalog insert failed", "content_key", att.ContentKey, "title", title, "error", err)
		return
	}

	if inserted {
		slog.Info("catalog item ingested", "title", title, "slug", item.Slug, "kind", att.Kind)
		metrics.IngestedItems.Inc()
	} else {
		metrics.DuplicateEvents.Inc()
	}
}
