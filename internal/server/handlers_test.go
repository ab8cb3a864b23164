package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/config"
	"github.com/cinevault/api/internal/search"
	"github.com/cinevault/api/internal/telegram"
	"github.com/cinevault/api/internal/testutil"
)

type recordingDispatcher struct {
	updates chan *telegram.Update
}

func (d *recordingDispatcher) HandleUpdate(ctx context.Context, u *telegram.Update) {
	d.updates <- u
}

func newTestRouter(t *testing.T, cfg config.TelegramConfig) (http.Handler, *recordingDispatcher) {
	t.Helper()

	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	year := 1999
	testutil.CreateTestItem(t, db, "the-matrix", "The Matrix", &year)
	testutil.CreateTestItem(t, db, "heat", "Heat", nil)

	dispatcher := &recordingDispatcher{updates: make(chan *telegram.Update, 1)}
	h := NewHandler(cfg, repo, search.NewEngine(repo), dispatcher, nil)
	return NewRouter(h, nil, nil), dispatcher
}

func getJSON(t *testing.T, router http.Handler, path string) (int, map[string]any) {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "OK" {
		t.Fatalf("expected body 'OK', got %q", rec.Body.String())
	}
}

func TestStatus(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{})

	code, body := getJSON(t, router, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok true, got %v", body["ok"])
	}
	if body["items"] != float64(2) {
		t.Fatalf("expected 2 items, got %v", body["items"])
	}
}

func TestMovie_Found(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{BotUsername: "cinevault_bot"})

	code, body := getJSON(t, router, "/api/movie/the-matrix")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}

	result := body["result"].(map[string]any)
	if result["title"] != "The Matrix" {
		t.Fatalf("expected title 'The Matrix', got %v", result["title"])
	}
	if result["year"] != float64(1999) {
		t.Fatalf("expected year 1999, got %v", result["year"])
	}
	link, _ := result["download_link"].(string)
	if link != "https://t.me/cinevault_bot?start=the-matrix" {
		t.Fatalf("unexpected download link %q", link)
	}
}

func TestMovie_NotFound(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{})

	code, body := getJSON(t, router, "/api/movie/no-such-slug")
	if code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if body["ok"] != false {
		t.Fatalf("expected ok false, got %v", body["ok"])
	}
}

func TestMovie_NoBotUsernameOmitsLink(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{})

	_, body := getJSON(t, router, "/api/movie/heat")
	result := body["result"].(map[string]any)
	if _, ok := result["download_link"]; ok {
		t.Fatal("expected no download_link without a bot username")
	}
}

func TestSearch(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{})

	code, body := getJSON(t, router, "/api/search?q=matrix")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	results := body["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	first := results[0].(map[string]any)
	if first["slug"] != "the-matrix" {
		t.Fatalf("expected slug 'the-matrix', got %v", first["slug"])
	}
}

func TestSearch_ShortQueryEmptyResults(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{})

	code, body := getJSON(t, router, "/api/search?q=a")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if results := body["results"].([]any); len(results) != 0 {
		t.Fatalf("expected no results for short query, got %d", len(results))
	}
}

func TestLatest(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{})

	code, body := getJSON(t, router, "/api/latest?per_page=1")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if results := body["results"].([]any); len(results) != 1 {
		t.Fatalf("expected 1 result with per_page=1, got %d", len(results))
	}
}

func TestReadEndpoints_DegradeWhenStoreUnavailable(t *testing.T) {
	db := testutil.TestDB(t)
	repo := catalog.NewRepository(db)
	h := NewHandler(config.TelegramConfig{}, repo, search.NewEngine(repo), nil, nil)
	router := NewRouter(h, nil, nil)
	db.Close()

	for _, path := range []string{"/api/latest", "/api/browse/action", "/api/search?q=matrix"} {
		code, body := getJSON(t, router, path)
		if code != http.StatusOK {
			t.Fatalf("%s: expected degraded 200, got %d", path, code)
		}
		if results := body["results"].([]any); len(results) != 0 {
			t.Fatalf("%s: expected empty results, got %d", path, len(results))
		}
	}

	code, body := getJSON(t, router, "/api/status")
	if code != http.StatusOK {
		t.Fatalf("status: expected degraded 200, got %d", code)
	}
	if body["items"] != float64(0) {
		t.Fatalf("status: expected 0 items, got %v", body["items"])
	}

	code, body = getJSON(t, router, "/api/movie/the-matrix")
	if code != http.StatusNotFound {
		t.Fatalf("movie: expected 404, got %d", code)
	}
	if body["ok"] != false {
		t.Fatalf("movie: expected ok false, got %v", body["ok"])
	}
}

func TestWebhook_BadSecretRejected(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{WebhookSecret: "s3cret"})

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"update_id":1}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWebhook_DispatchesUpdate(t *testing.T) {
	router, dispatcher := newTestRouter(t, config.TelegramConfig{WebhookSecret: "s3cret"})

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"update_id":42}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	select {
	case u := <-dispatcher.updates:
		if u.UpdateID != 42 {
			t.Fatalf("expected update_id 42, got %d", u.UpdateID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("update was not dispatched")
	}
}

func TestWebhook_MalformedBodyStill200(t *testing.T) {
	router, _ := newTestRouter(t, config.TelegramConfig{})

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for malformed update, got %d", rec.Code)
	}
}
