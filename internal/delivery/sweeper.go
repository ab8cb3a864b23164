package delivery

import (
	"context"
	"log/slog"
	"time"

	"github.com/cinevault/api/internal/metrics"
)

// Sweeper executes due retractions on a fixed short cadence, independent
// of request volume.
type Sweeper struct {
	gateway  Gateway
	queues   []Queue
	interval time.Duration
	clock    Clock
}

// NewSweeper drains every given queue; pass both the durable queue and the
// in-process fallback so entries are retracted wherever they landed.
func NewSweeper(gateway Gateway, interval time.Duration, queues ...Queue) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sweeper{
		gateway:  gateway,
		queues:   queues,
		interval: interval,
		clock:    realClock{},
	}
}

// SetClock replaces the wall clock. Tests only.
func (s *Sweeper) SetClock(c Clock) { s.clock = c }

// Start runs sweep passes until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("retraction sweeper started", "interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("retraction sweeper stopped")
			return
		case <-ticker.C:
			s.RunDue(ctx, s.clock.Now())
		}
	}
}

// RunDue executes every retraction due at now and returns how many were
// attempted. Entries are removed from their queue regardless of whether
// the delete call succeeded: a copy the gateway already lost is not worth
// a retry storm. One failed entry never blocks the rest of the batch.
func (s *Sweeper) RunDue(ctx context.Context, now time.Time) int {
	executed := 0

	for _, q := range s.queues {
		due, err := q.Due(ctx, now)
		if err != nil {
			slog.Warn("retraction queue read failed", "error", err)
			continue
		}
		if len(due) == 0 {
			continue
		}

		ids := make([]string, 0, len(due))
		for _, p := range due {
			if err := s.gateway.DeleteMessage(ctx, p.ChatID, p.MessageID); err != nil {
				slog.Warn("retract failed, abandoning entry",
					"chat", p.ChatID, "message", p.MessageID, "error", err)
				metrics.Retractions.WithLabelValues("failed").Inc()
			} else {
				metrics.Retractions.WithLabelValues("ok").Inc()
			}
			executed++
			ids = append(ids, p.ID)
		}

		if err := q.Remove(ctx, ids); err != nil {
			slog.Warn("retraction queue remove failed", "error", err)
		}
	}

	return executed
}
