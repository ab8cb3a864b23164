package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

func Validate(cfg *Config) error {
	var errs []error

	// Server validation
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}
	if cfg.Server.PublicURL != "" {
		u, err := url.Parse(cfg.Server.PublicURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.public_url %q is not a valid URL with scheme", cfg.Server.PublicURL))
		}
	}

	// Allowed origins validation
	for i, origin := range cfg.Server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.allowed_origins[%d] %q is not a valid URL with scheme", i, origin))
		}
	}

	// TLS validation
	switch cfg.Server.TLS.Mode {
	case "", "off":
		// no additional validation needed
	case "auto":
		if cfg.Server.TLS.Auto.Domain == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.domain is required when tls mode is auto"))
		}
		if cfg.Server.TLS.Auto.CacheDir == "" {
			errs = append(errs, fmt.Errorf("server.tls.auto.cache_dir is required when tls mode is auto"))
		}
	case "manual":
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.cert_file is required when tls mode is manual"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, fmt.Errorf("server.tls.key_file is required when tls mode is manual"))
		}
	default:
		errs = append(errs, fmt.Errorf("server.tls.mode must be off, auto, or manual"))
	}

	// Database validation
	if cfg.Database.Path == "" {
		errs = append(errs, fmt.Errorf("database.path is required"))
	}

	// Telegram validation
	if cfg.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("telegram.bot_token is required"))
	}
	if cfg.Telegram.ChannelID == 0 && cfg.Telegram.ChannelUsername == "" {
		errs = append(errs, fmt.Errorf("one of telegram.channel_id or telegram.channel_username is required"))
	}
	if cfg.Telegram.HTTPTimeout < time.Second {
		errs = append(errs, fmt.Errorf("telegram.http_timeout must be at least 1s"))
	}
	for i, ch := range cfg.Telegram.RequiredChannels {
		if ch == "" || !strings.HasPrefix(ch, "@") {
			errs = append(errs, fmt.Errorf("telegram.required_channels[%d] %q must start with @", i, ch))
		}
	}

	// Delivery validation
	if cfg.Delivery.DeleteAfter < 10*time.Second {
		errs = append(errs, fmt.Errorf("delivery.delete_after must be at least 10s"))
	}
	if cfg.Delivery.SweepInterval < time.Second {
		errs = append(errs, fmt.Errorf("delivery.sweep_interval must be at least 1s"))
	}

	// Replay validation (only when enabled)
	if cfg.Replay.Enabled {
		if cfg.Replay.BatchSize < 1 {
			errs = append(errs, fmt.Errorf("replay.batch_size must be at least 1"))
		}
		if cfg.Replay.Interval < time.Minute {
			errs = append(errs, fmt.Errorf("replay.interval must be at least 1m"))
		}
	}

	// Metadata validation (only when a key is set)
	if cfg.Metadata.TMDBKey != "" && cfg.Metadata.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("metadata.cache_size must be at least 1"))
	}

	// Backup validation (only when an admin chat is set)
	if cfg.Backup.AdminChat != 0 && cfg.Backup.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("backup.interval must be at least 1m"))
	}

	// Rate limit validation (only when enabled)
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Search.Limit < 1 {
			errs = append(errs, fmt.Errorf("rate_limit.search.limit must be at least 1"))
		}
		if cfg.RateLimit.Search.Window < time.Second {
			errs = append(errs, fmt.Errorf("rate_limit.search.window must be at least 1s"))
		}
	}

	// Log validation
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error"))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
