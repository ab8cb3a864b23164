package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/testutil"
)

func testItem(key, slug, title string) *catalog.Item {
	return &catalog.Item{
		ContentKey: key,
		Slug:       slug,
		Title:      title,
		Caption:    title,
		FileID:     "file-" + key,
		ChannelID:  -100100,
		MessageID:  1,
	}
}

func TestInsertIfAbsent_Dedup(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	ctx := context.Background()

	inserted, err := repo.InsertIfAbsent(ctx, testItem("k1", "the-matrix", "The Matrix"))
	if err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report inserted")
	}

	// Same content key again, even with different metadata.
	inserted, err = repo.InsertIfAbsent(ctx, testItem("k1", "matrix-reupload", "Matrix Reupload"))
	if err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}
	if inserted {
		t.Fatal("duplicate content key should not insert")
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Count() = %d, want 1", count)
	}
}

func TestGetBySlug_FirstWriterWins(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	ctx := context.Background()

	first := testItem("k1", "heat", "Heat")
	first.CreatedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := repo.InsertIfAbsent(ctx, first); err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}

	second := testItem("k2", "heat", "Heat Remastered")
	second.CreatedAt = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	if _, err := repo.InsertIfAbsent(ctx, second); err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}

	got, err := repo.GetBySlug(ctx, "heat")
	if err != nil {
		t.Fatalf("GetBySlug() error = %v", err)
	}
	if got.ContentKey != "k1" {
		t.Fatalf("GetBySlug() returned %q, want first writer k1", got.ContentKey)
	}
}

func TestGetBySlug_NotFound(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)

	_, err := repo.GetBySlug(context.Background(), "missing")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("GetBySlug() error = %v, want ErrNotFound", err)
	}
}

func TestListRecent_OrderAndPaging(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, slug := range []string{"first", "second", "third"} {
		item := testItem("k"+slug, slug, slug)
		item.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if _, err := repo.InsertIfAbsent(ctx, item); err != nil {
			t.Fatalf("InsertIfAbsent() error = %v", err)
		}
	}

	items, err := repo.ListRecent(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ListRecent() returned %d items, want 2", len(items))
	}
	if items[0].Slug != "third" || items[1].Slug != "second" {
		t.Fatalf("ListRecent() order = %q, %q; want third, second", items[0].Slug, items[1].Slug)
	}

	items, err = repo.ListRecent(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(items) != 1 || items[0].Slug != "first" {
		t.Fatalf("ListRecent() second page = %+v, want just first", items)
	}
}

func TestListByCategoryHint(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	ctx := context.Background()

	hindi := testItem("k1", "example-hindi", "Example Movie")
	hindi.Caption = "Example Movie Hindi Dubbed"
	if _, err := repo.InsertIfAbsent(ctx, hindi); err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}
	if _, err := repo.InsertIfAbsent(ctx, testItem("k2", "other", "Other Movie")); err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}

	items, err := repo.ListByCategoryHint(ctx, "Hindi", 10, 0)
	if err != nil {
		t.Fatalf("ListByCategoryHint() error = %v", err)
	}
	if len(items) != 1 || items[0].ContentKey != "k1" {
		t.Fatalf("ListByCategoryHint() = %+v, want only k1", items)
	}
}

func TestSearchCandidates(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	ctx := context.Background()

	for _, it := range []*catalog.Item{
		testItem("k1", "the-matrix", "The Matrix"),
		testItem("k2", "the-matrix-reloaded", "The Matrix Reloaded"),
		testItem("k3", "heat", "Heat"),
	} {
		if _, err := repo.InsertIfAbsent(ctx, it); err != nil {
			t.Fatalf("InsertIfAbsent() error = %v", err)
		}
	}

	items, err := repo.SearchCandidates(ctx, []string{"matrix"}, "", 10)
	if err != nil {
		t.Fatalf("SearchCandidates() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("SearchCandidates() returned %d items, want 2", len(items))
	}

	// OR semantics: any token may match.
	items, err = repo.SearchCandidates(ctx, []string{"matrix", "heat"}, "", 10)
	if err != nil {
		t.Fatalf("SearchCandidates() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("SearchCandidates() with two tokens returned %d items, want 3", len(items))
	}

	// Hint narrows the candidate set.
	items, err = repo.SearchCandidates(ctx, []string{"matrix", "heat"}, "reloaded", 10)
	if err != nil {
		t.Fatalf("SearchCandidates() error = %v", err)
	}
	if len(items) != 1 || items[0].ContentKey != "k2" {
		t.Fatalf("SearchCandidates() with hint = %+v, want only k2", items)
	}

	// Empty token list short-circuits.
	items, err = repo.SearchCandidates(ctx, nil, "", 10)
	if err != nil {
		t.Fatalf("SearchCandidates() error = %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("SearchCandidates() with no tokens = %d items, want 0", len(items))
	}
}

func TestSearchCandidates_Limit(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		item := testItem("k"+string(rune('a'+i)), "movie-"+string(rune('a'+i)), "Movie")
		if _, err := repo.InsertIfAbsent(ctx, item); err != nil {
			t.Fatalf("InsertIfAbsent() error = %v", err)
		}
	}

	items, err := repo.SearchCandidates(ctx, []string{"movie"}, "", 3)
	if err != nil {
		t.Fatalf("SearchCandidates() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("SearchCandidates() returned %d items, want capped 3", len(items))
	}
}
