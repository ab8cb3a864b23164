package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cinevault/api/internal/backup"
	"github.com/cinevault/api/internal/bot"
	"github.com/cinevault/api/internal/catalog"
	"github.com/cinevault/api/internal/config"
	"github.com/cinevault/api/internal/database"
	"github.com/cinevault/api/internal/delivery"
	"github.com/cinevault/api/internal/ingest"
	"github.com/cinevault/api/internal/metadata"
	"github.com/cinevault/api/internal/ratelimit"
	"github.com/cinevault/api/internal/search"
	"github.com/cinevault/api/internal/server"
	"github.com/cinevault/api/internal/telegram"
)

type App struct {
	Config      *config.Config
	DB          *database.DB
	Server      *server.Server
	Telegram    *telegram.Client
	Pipeline    *ingest.Pipeline
	Replayer    *ingest.Replayer
	Scheduler   *delivery.Scheduler
	Sweeper     *delivery.Sweeper
	Backup      *backup.Worker
	RateLimiter *ratelimit.Limiter
}

func New(cfg *config.Config) (*App, error) {
	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Telegram gateway. APIBase is overridable for local bot API servers
	// and tests.
	var tg *telegram.Client
	if cfg.Telegram.APIBase != "" {
		tg = telegram.NewClientWithBase(cfg.Telegram.APIBase, cfg.Telegram.BotToken, cfg.Telegram.HTTPTimeout)
	} else {
		tg = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.HTTPTimeout)
	}

	// Catalog and ingestion
	repo := catalog.NewRepository(db.DB)
	pipeline := ingest.NewPipeline(repo)
	cursors := ingest.NewCursorStore(db.DB)
	replayer := ingest.NewReplayer(tg, pipeline, cursors, cfg.Telegram.ChannelID, cfg.Replay.BatchSize)

	// Search
	engine := search.NewEngine(repo)

	// Delivery: durable queue backed by sqlite, in-memory fallback when the
	// database is unavailable mid-flight.
	storeQueue := delivery.NewStoreQueue(db.DB)
	memQueue := delivery.NewMemoryQueue()
	scheduler := delivery.NewScheduler(tg, storeQueue, memQueue, cfg.Delivery.DeleteAfter)
	sweeper := delivery.NewSweeper(tg, cfg.Delivery.SweepInterval, storeQueue, memQueue)

	// Optional TMDB poster lookups
	var meta *metadata.Client
	if cfg.Metadata.TMDBKey != "" {
		meta = metadata.NewClient(cfg.Metadata.TMDBKey, cfg.Metadata.CacheSize)
	}

	// Normalize publicURL to avoid double slashes in constructed URLs
	cfg.Server.PublicURL = strings.TrimRight(cfg.Server.PublicURL, "/")

	websiteURL := strings.TrimRight(cfg.Telegram.WebsiteURL, "/")
	if websiteURL == "" {
		websiteURL = cfg.Server.PublicURL
	}

	// Bot dispatcher
	dispatcher := bot.NewDispatcher(bot.Config{
		ChannelID:        cfg.Telegram.ChannelID,
		ChannelUsername:  cfg.Telegram.ChannelUsername,
		WebsiteURL:       websiteURL,
		RequiredChannels: cfg.Telegram.RequiredChannels,
	}, tg, pipeline, engine, repo, scheduler)

	// Optional CSV backup worker
	var backupWorker *backup.Worker
	if cfg.Backup.AdminChat != 0 {
		backupWorker = backup.NewWorker(repo, tg, cfg.Backup.AdminChat, cfg.Backup.Interval)
	}

	// Build rate limiter (nil if disabled)
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewLimiter([]ratelimit.Rule{
			{Method: "GET", Path: "/api/search", Limit: cfg.RateLimit.Search.Limit, Window: cfg.RateLimit.Search.Window},
		})
	}

	// HTTP surface
	h := server.NewHandler(cfg.Telegram, repo, engine, dispatcher, meta)
	router := server.NewRouter(h, limiter, cfg.Server.AllowedOrigins)

	if cfg.Server.TLS.Mode == "auto" {
		if err := os.MkdirAll(cfg.Server.TLS.Auto.CacheDir, 0700); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("creating TLS cache directory: %w", err)
		}
	}

	srv := server.New(cfg.Server, router)

	return &App{
		Config:      cfg,
		DB:          db,
		Server:      srv,
		Telegram:    tg,
		Pipeline:    pipeline,
		Replayer:    replayer,
		Scheduler:   scheduler,
		Sweeper:     sweeper,
		Backup:      backupWorker,
		RateLimiter: limiter,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	// Start retraction sweeper
	go a.Sweeper.Start(ctx)

	// Start channel backlog replay
	if a.Config.Replay.Enabled {
		go a.Replayer.Run(ctx, a.Config.Replay.Interval)
	}

	// Start backup worker
	if a.Backup != nil {
		go a.Backup.Start(ctx)
	}

	// Start rate limiter cleanup
	if a.RateLimiter != nil {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.RateLimiter.Cleanup()
				}
			}
		}()
	}

	// Register the webhook when the deployment has a public address. Without
	// one, updates come in through the replayer's getUpdates polling.
	if a.Config.Server.PublicURL != "" {
		regCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		webhookURL := a.Config.Server.PublicURL + "/webhook"
		if err := a.Telegram.SetWebhook(regCtx, webhookURL, a.Config.Telegram.WebhookSecret); err != nil {
			slog.Warn("registering webhook failed, relying on replay polling", "url", webhookURL, "error", err)
		} else {
			slog.Info("webhook registered", "url", webhookURL)
		}
	}

	slog.Info("starting cinevault backend",
		"addr", a.Server.Addr(),
		"database", a.Config.Database.Path,
		"channel", a.Config.Telegram.ChannelID,
		"tls", a.Server.TLSMode(),
		"replay", a.Config.Replay.Enabled,
	)

	return a.Server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	if err := a.Server.Shutdown(ctx); err != nil {
		return err
	}
	return a.DB.Close()
}
