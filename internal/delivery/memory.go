package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryQueue is the in-process fallback used when the durable store is
// unavailable. Unexecuted entries are lost on restart; that limitation is
// accepted, not masked.
type MemoryQueue struct {
	mu      sync.Mutex
	entries []PendingRetraction
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Enqueue(_ context.Context, p *PendingRetraction) error {
	p.ID = ulid.Make().String()
	p.CreatedAt = time.Now().UTC()

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, *p)
	return nil
}

func (q *MemoryQueue) Due(_ context.Context, now time.Time) ([]PendingRetraction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []PendingRetraction
	for _, p := range q.entries {
		if !p.DueAt.After(now) {
			due = append(due, p)
		}
	}
	return due, nil
}

func (q *MemoryQueue) Remove(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	keep := q.entries[:0]
	for _, p := range q.entries {
		if _, ok := drop[p.ID]; !ok {
			keep = append(keep, p)
		}
	}
	q.entries = keep
	return nil
}

// Len reports the number of queued entries.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
