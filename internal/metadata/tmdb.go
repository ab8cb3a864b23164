package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cinevault/api/internal/catalog"
)

const (
	defaultAPIBase = "https://api.themoviedb.org/3"
	posterBase     = "https://image.tmdb.org/t/p/w500"

	// PlaceholderPoster is returned whenever no artwork can be found.
	PlaceholderPoster = "https://via.placeholder.com/500x750?text=No+Poster"
)

// Client looks up movie posters from TMDB. Lookups are cached in an LRU so
// list endpoints do not hammer the API with the same titles. A nil client
// or missing API key disables enrichment entirely.
type Client struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
	cache      *lru.Cache[string, string]
}

func NewClient(apiKey string, cacheSize int) *Client {
	return NewClientWithBase(defaultAPIBase, apiKey, cacheSize)
}

func NewClientWithBase(apiBase, apiKey string, cacheSize int) *Client {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	cache, _ := lru.New[string, string](cacheSize)
	return &Client{
		apiKey:     apiKey,
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cache:      cache,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// Poster returns a poster URL for the title, or the placeholder when
// enrichment is disabled or the lookup fails. Never errors: posters are
// decoration, not data.
func (c *Client) Poster(ctx context.Context, title string) string {
	if !c.Enabled() || title == "" {
		return PlaceholderPoster
	}

	key := strings.ToLower(title)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	query := strings.ToLower(catalog.Normalize(title).Title)
	if query == "" {
		query = strings.TrimSpace(title)
	}

	poster := c.lookup(ctx, query)
	c.cache.Add(key, poster)
	return poster
}

func (c *Client) lookup(ctx context.Context, query string) string {
	u := fmt.Sprintf("%s/search/movie?api_key=%s&query=%s&page=1",
		c.apiBase, url.QueryEscape(c.apiKey), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return PlaceholderPoster
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("tmdb search failed", "query", query, "error", err)
		return PlaceholderPoster
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PlaceholderPoster
	}

	var payload struct {
		Results []struct {
			PosterPath string `json:"poster_path"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return PlaceholderPoster
	}

	if len(payload.Results) == 0 || payload.Results[0].PosterPath == "" {
		return PlaceholderPoster
	}
	return posterBase + payload.Results[0].PosterPath
}
