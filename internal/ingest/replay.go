package ingest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/cinevault/api/internal/telegram"
)

const (
	replayCursorName = "channel_backlog"
	pollTimeoutSec   = 2
)

// Poller is the slice of the gateway the replayer consumes.
type Poller interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int, allowedUpdates []string) ([]telegram.Update, error)
}

// Replayer walks the channel backlog through the same pipeline as live
// events. Its offset is persisted between batches, so restarts and
// rate-limit pauses resume without losing or double-counting work (the
// pipeline's dedup absorbs any overlap).
type Replayer struct {
	poller    Poller
	pipeline  *Pipeline
	cursors   *CursorStore
	channelID int64
	batchSize int
	limiter   *rate.Limiter
}

func NewReplayer(poller Poller, pipeline *Pipeline, cursors *CursorStore, channelID int64, batchSize int) *Replayer {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Replayer{
		poller:    poller,
		pipeline:  pipeline,
		cursors:   cursors,
		channelID: channelID,
		batchSize: batchSize,
		// Stay well under the Bot API's throughput ceiling.
		limiter: rate.NewLimiter(rate.Limit(25), 25),
	}
}

// RunOnce drains up to the batch size of backlog updates and returns how
// many channel posts were ingested. A rate-limit signal suspends the pass
// for exactly the mandated cooldown, then resumes from the same offset.
func (r *Replayer) RunOnce(ctx context.Context) (int, error) {
	offset, err := r.cursors.Get(ctx, replayCursorName)
	if err != nil {
		slog.Warn("replay cursor load failed, starting from live", "error", err)
		offset = 0
	}

	processed := 0
	for processed < r.batchSize {
		updates, err := r.poller.GetUpdates(ctx, offset, pollTimeoutSec, []string{"channel_post"})
		if err != nil {
			if wait, ok := telegram.FloodWait(err); ok {
				slog.Warn("replay rate limited, cooling down", "wait", wait)
				select {
				case <-ctx.Done():
					return processed, ctx.Err()
				case <-time.After(wait):
				}
				continue
			}
			return processed, err
		}
		if len(updates) == 0 {
			break
		}

		for _, u := range updates {
			if err := r.limiter.Wait(ctx); err != nil {
				return processed, err
			}

			offset = u.UpdateID + 1

			msg := u.ChannelPost
			if msg == nil || msg.Chat.ID != r.channelID {
				continue
			}

			r.pipeline.Ingest(ctx, msg)
			processed++
		}

		if err := r.cursors.Set(ctx, replayCursorName, offset); err != nil {
			slog.Warn("replay cursor save failed", "error", err)
		}
	}

	return processed, nil
}

// Run executes replay passes on a fixed interval until the context is
// cancelled.
func (r *Replayer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("backlog replayer started", "interval", interval, "batch_size", r.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("backlog replayer stopped")
			return
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil {
				slog.Warn("replay pass failed", "processed", n, "error", err)
			} else if n > 0 {
				slog.Info("replay pass complete", "processed", n)
			}
		}
	}
}
