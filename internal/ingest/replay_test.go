package ingest_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/ingest"
	"github.com/cinevault/api/internal/telegram"
	"github.com/cinevault/api/internal/testutil"
)

// scriptedPoller returns one pre-baked batch per GetUpdates call, then
// empty batches.
type scriptedPoller struct {
	batches [][]telegram.Update
	errs    []error
	call    int
	offsets []int64
}

func (p *scriptedPoller) GetUpdates(ctx context.Context, offset int64, timeoutSec int, allowedUpdates []string) ([]telegram.Update, error) {
	p.offsets = append(p.offsets, offset)
	i := p.call
	p.call++
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.batches) {
		return p.batches[i], nil
	}
	return nil, nil
}

func channelUpdate(updateID, messageID int64, chatID int64, caption string) telegram.Update {
	return telegram.Update{
		UpdateID: updateID,
		ChannelPost: &telegram.Message{
			MessageID: messageID,
			Chat:      telegram.Chat{ID: chatID, Type: "channel"},
			Caption:   caption,
			Document:  &telegram.File{FileID: "f" + caption, FileUniqueID: "u" + caption},
		},
	}
}

func newReplayFixture(t *testing.T, poller ingest.Poller, batchSize int) (*ingest.Replayer, *catalog.Repository, *ingest.CursorStore) {
	t.Helper()
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	cursors := ingest.NewCursorStore(db)
	return ingest.NewReplayer(poller, ingest.NewPipeline(repo), cursors, -100100, batchSize), repo, cursors
}

func TestRunOnce_IngestsBacklog(t *testing.T) {
	poller := &scriptedPoller{batches: [][]telegram.Update{{
		channelUpdate(1, 10, -100100, "Heat 1995"),
		channelUpdate(2, 11, -100100, "The Matrix 1999"),
	}}}
	r, repo, cursors := newReplayFixture(t, poller, 200)

	n, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("RunOnce() = %d, want 2", n)
	}

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want 2", count)
	}

	// The cursor now points past the last consumed update.
	pos, err := cursors.Get(context.Background(), "channel_backlog")
	if err != nil {
		t.Fatalf("cursor Get() error = %v", err)
	}
	if pos != 3 {
		t.Fatalf("cursor = %d, want 3", pos)
	}
}

func TestRunOnce_SkipsForeignChannels(t *testing.T) {
	poller := &scriptedPoller{batches: [][]telegram.Update{{
		channelUpdate(1, 10, -100100, "Heat 1995"),
		channelUpdate(2, 11, -999999, "Other Channel Upload"),
	}}}
	r, repo, _ := newReplayFixture(t, poller, 200)

	n, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("RunOnce() = %d, want 1", n)
	}

	count, _ := repo.Count(context.Background())
	if count != 1 {
		t.Fatalf("Count() = %d, want 1", count)
	}
}

func TestRunOnce_ResumesFromSavedCursor(t *testing.T) {
	poller := &scriptedPoller{}
	r, _, cursors := newReplayFixture(t, poller, 200)

	if err := cursors.Set(context.Background(), "channel_backlog", 500); err != nil {
		t.Fatalf("cursor Set() error = %v", err)
	}

	if _, err := r.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(poller.offsets) == 0 || poller.offsets[0] != 500 {
		t.Fatalf("first poll offset = %v, want 500", poller.offsets)
	}
}

func TestRunOnce_FloodWaitPausesAndResumes(t *testing.T) {
	poller := &scriptedPoller{
		errs: []error{&telegram.FloodWaitError{RetryAfter: 10 * time.Millisecond}},
		batches: [][]telegram.Update{
			nil, // consumed by the error slot
			{channelUpdate(1, 10, -100100, "Heat 1995")},
		},
	}
	r, repo, _ := newReplayFixture(t, poller, 200)

	n, err := r.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("RunOnce() = %d, want 1 after cooldown", n)
	}

	count, _ := repo.Count(context.Background())
	if count != 1 {
		t.Fatalf("Count() = %d, want 1", count)
	}
}

func TestRunOnce_OtherErrorsPropagate(t *testing.T) {
	poller := &scriptedPoller{errs: []error{errors.New("bad gateway")}}
	r, _, _ := newReplayFixture(t, poller, 200)

	if _, err := r.RunOnce(context.Background()); err == nil {
		t.Fatal("RunOnce() error = nil, want propagated poll error")
	}
}

func TestCursorStore_GetMissingIsZero(t *testing.T) {
	db := testutil.TestDB(t)
	cursors := ingest.NewCursorStore(db)

	pos, err := cursors.Get(context.Background(), "never-set")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if pos != 0 {
		t.Fatalf("Get() = %d, want 0", pos)
	}
}

func TestCursorStore_Upsert(t *testing.T) {
	db := testutil.TestDB(t)
	cursors := ingest.NewCursorStore(db)
	ctx := context.Background()

	for _, pos := range []int64{10, 20} {
		if err := cursors.Set(ctx, "c", pos); err != nil {
			t.Fatalf("Set(%d) error = %v", pos, err)
		}
	}

	pos, err := cursors.Get(ctx, "c")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if pos != 20 {
		t.Fatalf("Get() = %d, want 20", pos)
	}
}
