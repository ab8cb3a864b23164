package backup_test

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cinevault/api/internal/backup"
	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/testutil"
)

type fakeGateway struct {
	chatID   int64
	filename string
	data     []byte
	caption  string
	err      error
	calls    int
}

func (g *fakeGateway) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	g.calls++
	g.chatID = chatID
	g.filename = filename
	g.data = data
	g.caption = caption
	return g.err
}

func TestRun_SendsCSV(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	year := 1999
	testutil.CreateTestItem(t, db, "the-matrix", "The Matrix", &year)
	testutil.CreateTestItem(t, db, "heat", "Heat", nil)

	gw := &fakeGateway{}
	w := backup.NewWorker(repo, gw, 777, time.Hour)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if gw.chatID != 777 {
		t.Fatalf("sent to chat %d, want 777", gw.chatID)
	}
	if !strings.HasPrefix(gw.filename, "catalog_backup_") || !strings.HasSuffix(gw.filename, ".csv") {
		t.Fatalf("filename = %q", gw.filename)
	}

	records, err := csv.NewReader(strings.NewReader(string(gw.data))).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("CSV has %d rows, want header + 2 items", len(records))
	}
	if records[0][0] != "content_key" {
		t.Fatalf("header = %v", records[0])
	}

	var sawMatrix bool
	for _, rec := range records[1:] {
		if rec[1] == "the-matrix" {
			sawMatrix = true
			if rec[3] != "1999" {
				t.Fatalf("year column = %q, want 1999", rec[3])
			}
		}
	}
	if !sawMatrix {
		t.Fatal("the-matrix row missing from export")
	}
}

func TestRun_GatewayErrorPropagates(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	gw := &fakeGateway{err: errors.New("bad gateway")}
	w := backup.NewWorker(repo, gw, 777, time.Hour)

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want send failure")
	}
}

func TestStart_DisabledWithoutAdminChat(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	gw := &fakeGateway{}
	w := backup.NewWorker(repo, gw, 0, time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() should return immediately without an admin chat")
	}
	if gw.calls != 0 {
		t.Fatalf("sent %d backups, want 0", gw.calls)
	}
}
