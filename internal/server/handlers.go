package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/config"
	"github.com/cinevault/api/internal/metadata"
	"github.com/cinevault/api/internal/search"
	"github.com/cinevault/api/internal/telegram"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// Webhook handlers must return quickly or Telegram retries the update;
	// the actual dispatch runs detached under this deadline.
	dispatchTimeout = 30 * time.Second
)

// UpdateDispatcher routes a decoded Telegram update to the bot logic.
type UpdateDispatcher interface {
	HandleUpdate(ctx context.Context, u *telegram.Update)
}

type Handler struct {
	cfg        config.TelegramConfig
	repo       *catalog.Repository
	engine     *search.Engine
	dispatcher UpdateDispatcher
	meta       *metadata.Client
	startedAt  time.Time
}

func NewHandler(cfg config.TelegramConfig, repo *catalog.Repository, engine *search.Engine, dispatcher UpdateDispatcher, meta *metadata.Client) *Handler {
	return &Handler{
		cfg:        cfg,
		repo:       repo,
		engine:     engine,
		dispatcher: dispatcher,
		meta:       meta,
		startedAt:  time.Now(),
	}
}

// movieView is the public JSON shape of a catalog item. File identifiers
// never leave the server; the download link goes through the bot.
type movieView struct {
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	Year         *int    `json:"year,omitempty"`
	Poster       string  `json:"poster,omitempty"`
	FileSize     *int64  `json:"file_size,omitempty"`
	MimeType     *string `json:"mime_type,omitempty"`
	AddedAt      string  `json:"added_at"`
	DownloadLink string  `json:"download_link,omitempty"`
}

func (h *Handler) view(ctx context.Context, item *catalog.Item) movieView {
	v := movieView{
		Title:    item.Title,
		Slug:     item.Slug,
		Year:     item.Year,
		FileSize: item.FileSize,
		MimeType: item.MimeType,
		AddedAt:  item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if h.cfg.BotUsername != "" {
		v.DownloadLink = fmt.Sprintf("https://t.me/%s?start=%s", h.cfg.BotUsername, url.QueryEscape(item.Slug))
	}
	if h.meta.Enabled() {
		v.Poster = h.meta.Poster(ctx, item.Title)
	}
	return v
}

func (h *Handler) views(ctx context.Context, items []catalog.Item) []movieView {
	out := make([]movieView, 0, len(items))
	for i := range items {
		out = append(out, h.view(ctx, &items[i]))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func pagination(r *http.Request) (limit, offset int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPageSize
	}
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	return perPage, (page - 1) * perPage
}

// Webhook receives Telegram updates. It always answers 200 so Telegram does
// not redeliver updates whose processing failed on our side.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.cfg.WebhookSecret != "" {
		if r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != h.cfg.WebhookSecret {
			writeError(w, http.StatusUnauthorized, "bad secret token")
			return
		}
	}

	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		slog.Warn("webhook: undecodable update", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		h.dispatcher.HandleUpdate(ctx, &update)
	}()

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	count, err := h.repo.Count(r.Context())
	if err != nil {
		slog.Warn("status: counting items", "error", err)
		count = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":             true,
		"items":          count,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")
	limit, _ := pagination(r)

	items := h.engine.Search(r.Context(), query, limit, category)
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"query":   query,
		"results": h.views(r.Context(), items),
	})
}

func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	// Reads degrade: a backing-store failure serves an empty page, never a 500.
	items, err := h.repo.ListRecent(r.Context(), limit, offset)
	if err != nil {
		slog.Warn("latest: listing items", "error", err)
		items = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"results": h.views(r.Context(), items),
	})
}

func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	limit, offset := pagination(r)

	items, err := h.repo.ListByCategoryHint(r.Context(), category, limit, offset)
	if err != nil {
		slog.Warn("browse: listing items", "error", err, "category", category)
		items = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"category": category,
		"results":  h.views(r.Context(), items),
	})
}

func (h *Handler) Movie(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	// An unavailable store reads the same as a missing slug.
	item, err := h.repo.GetBySlug(r.Context(), slug)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			slog.Warn("movie: fetching item", "error", err, "slug", slug)
		}
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"result": h.view(r.Context(), item),
	})
}
