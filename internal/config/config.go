package config

import "time"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Telegram  TelegramConfig  `koanf:"telegram"`
	Delivery  DeliveryConfig  `koanf:"delivery"`
	Replay    ReplayConfig    `koanf:"replay"`
	Metadata  MetadataConfig  `koanf:"metadata"`
	Backup    BackupConfig    `koanf:"backup"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Host           string    `koanf:"host"`
	Port           int       `koanf:"port"`
	PublicURL      string    `koanf:"public_url"`
	AllowedOrigins []string  `koanf:"allowed_origins"`
	TLS            TLSConfig `koanf:"tls"`
}

type TLSConfig struct {
	Mode     string        `koanf:"mode"`
	CertFile string        `koanf:"cert_file"`
	KeyFile  string        `koanf:"key_file"`
	Auto     AutoTLSConfig `koanf:"auto"`
}

type AutoTLSConfig struct {
	Domain   string `koanf:"domain"`
	Email    string `koanf:"email"`
	CacheDir string `koanf:"cache_dir"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type TelegramConfig struct {
	BotToken         string        `koanf:"bot_token"`
	BotUsername      string        `koanf:"bot_username"`
	APIBase          string        `koanf:"api_base"`
	ChannelID        int64         `koanf:"channel_id"`
	ChannelUsername  string        `koanf:"channel_username"`
	WebhookSecret    string        `koanf:"webhook_secret"`
	WebsiteURL       string        `koanf:"website_url"`
	RequiredChannels []string      `koanf:"required_channels"`
	HTTPTimeout      time.Duration `koanf:"http_timeout"`
}

type DeliveryConfig struct {
	DeleteAfter   time.Duration `koanf:"delete_after"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type ReplayConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Interval  time.Duration `koanf:"interval"`
	BatchSize int           `koanf:"batch_size"`
}

type MetadataConfig struct {
	TMDBKey   string `koanf:"tmdb_key"`
	CacheSize int    `koanf:"cache_size"`
}

type BackupConfig struct {
	AdminChat int64         `koanf:"admin_chat"`
	Interval  time.Duration `koanf:"interval"`
}

type RateLimitConfig struct {
	Enabled bool              `koanf:"enabled"`
	Search  RateLimitEndpoint `koanf:"search"`
}

type RateLimitEndpoint struct {
	Limit  int           `koanf:"limit"`
	Window time.Duration `koanf:"window"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			TLS: TLSConfig{
				Mode: "off",
				Auto: AutoTLSConfig{
					CacheDir: "./data/certs",
				},
			},
		},
		Database: DatabaseConfig{
			Path: "./data/cinevault.db",
		},
		Telegram: TelegramConfig{
			HTTPTimeout: 8 * time.Second,
		},
		Delivery: DeliveryConfig{
			DeleteAfter:   5 * time.Minute,
			SweepInterval: 5 * time.Second,
		},
		Replay: ReplayConfig{
			Interval:  10 * time.Minute,
			BatchSize: 200,
		},
		Metadata: MetadataConfig{
			CacheSize: 1024,
		},
		Backup: BackupConfig{
			Interval: 12 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Search: RateLimitEndpoint{
				Limit:  30,
				Window: time.Minute,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
