package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/metrics"
	"github.com/cinevault/api/internal/telegram"
)

// Gateway is the slice of the messaging gateway the scheduler needs.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.ReplyMarkup) error
	ForwardMessage(ctx context.Context, toChat, fromChat, messageID int64) (int64, error)
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// Scheduler forwards catalog files to requesters and guarantees a later
// retraction of every forwarded copy.
type Scheduler struct {
	gateway  Gateway
	queue    Queue
	fallback Queue
	delay    time.Duration
	clock    Clock
}

// NewScheduler wires the scheduler to its durable queue. fallback is the
// in-process queue used when a durable enqueue fails; pass nil to make a
// failed enqueue terminal.
func NewScheduler(gateway Gateway, queue, fallback Queue, delay time.Duration) *Scheduler {
	return &Scheduler{
		gateway:  gateway,
		queue:    queue,
		fallback: fallback,
		delay:    delay,
		clock:    realClock{},
	}
}

// SetClock replaces the wall clock. Tests only.
func (s *Scheduler) SetClock(c Clock) { s.clock = c }

// Delay reports the configured auto-delete window.
func (s *Scheduler) Delay() time.Duration { return s.delay }

// Deliver forwards the item's file from its source channel to the
// requester. On success exactly one PendingRetraction is recorded and the
// requester is told about the auto-delete window. The forward must be
// confirmed before any retraction is scheduled.
func (s *Scheduler) Deliver(ctx context.Context, requesterChat int64, item *catalog.Item) bool {
	fromChat, messageID := item.SourceLocation()

	newMessageID, err := s.gateway.ForwardMessage(ctx, requesterChat, fromChat, messageID)
	if err != nil {
		slog.Warn("forward failed",
			"slug", item.Slug,
			"requester", requesterChat,
			"error", err,
		)
		metrics.Deliveries.WithLabelValues("failed").Inc()
		return false
	}

	s.schedule(ctx, &PendingRetraction{
		ChatID:    requesterChat,
		MessageID: newMessageID,
		DueAt:     s.clock.Now().Add(s.delay),
	})

	notice := fmt.Sprintf("⏳ Sent: %s — auto-delete in %d seconds.", item.Title, int(s.delay.Seconds()))
	if err := s.gateway.SendMessage(ctx, requesterChat, notice, nil); err != nil {
		slog.Warn("delivery notice failed", "requester", requesterChat, "error", err)
	}

	metrics.Deliveries.WithLabelValues("ok").Inc()
	return true
}

func (s *Scheduler) schedule(ctx context.Context, p *PendingRetraction) {
	if err := s.queue.Enqueue(ctx, p); err != nil {
		slog.Warn("durable retraction enqueue failed, using in-process queue",
			"chat", p.ChatID, "message", p.MessageID, "error", err)
		if s.fallback != nil {
			_ = s.fallback.Enqueue(ctx, p)
		}
	}
}
