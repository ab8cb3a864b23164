package delivery

import (
	"context"
	"time"
)

// PendingRetraction is one scheduled delete of a forwarded message copy.
// Exactly one exists per successful forward until the sweeper consumes it.
type PendingRetraction struct {
	ID        string    `json:"id"`
	ChatID    int64     `json:"chat_id"`
	MessageID int64     `json:"message_id"`
	DueAt     time.Time `json:"due_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue holds retractions until they fall due. Implementations must be
// safe for concurrent enqueue and drain.
type Queue interface {
	Enqueue(ctx context.Context, p *PendingRetraction) error
	Due(ctx context.Context, now time.Time) ([]PendingRetraction, error)
	Remove(ctx context.Context, ids []string) error
}

// Clock abstracts time so tests can drive scheduling deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
