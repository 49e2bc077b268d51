// Package config provides application configuration management using environment variables.
// It uses github.com/kelseyhightower/envconfig for loading configuration from environment variables
// with support for validation, default values, and environment-specific helpers.
//
// # Basic Usage
//
// Load configuration from environment variables:
//
//	cfg, err := config.Load("APP")
//	if err != nil {
//		log.Fatalf("Failed to load configuration: %v", err)
//	}
//
//	// Validate configuration
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
//
// # Environment Variables
//
// The following environment variables are supported (using "APP" prefix):
//
// Basic configuration:
//   - APP_ENVIRONMENT: Environment (development, staging, production)
//
// Server configuration:
//   - APP_SERVER_HOST: Server host (default: 0.0.0.0)
//   - APP_SERVER_PORT: Server port (default: 8080)
//   - APP_SERVER_READ_HEADER_TIMEOUT, APP_SERVER_READ_TIMEOUT, APP_SERVER_HANDLER_TIMEOUT,
//     APP_SERVER_IDLE_TIMEOUT: connection timeouts
//   - APP_CORS_ALLOWED_ORIGINS: comma-separated allowed CORS origins
//
// API configuration:
//   - APP_API_PREFIX: route prefix for every endpoint but /health, /docs and
//     /api-docs/openapi.json (default: /api/v2)
//
// Resources configuration:
//   - APP_RESOURCES_BASE_PATH: root directory for songs.csv/charts.csv/alias.yml
//     and the render template tree
//   - APP_RESOURCES_ILLUSTRATION_REPO, APP_RESOURCES_ILLUSTRATION_FOLDER: chart
//     illustration asset locations
//   - APP_RESOURCES_INFO_PATH: illustration index JSON file
//
// Image configuration:
//   - APP_IMAGE_OPTIMIZE_SPEED, APP_IMAGE_CACHE_ENABLED, APP_IMAGE_CACHE_MAX_BYTES,
//     APP_IMAGE_CACHE_TTL_SECS, APP_IMAGE_CACHE_TTI_SECS, APP_IMAGE_MAX_PARALLEL,
//     APP_IMAGE_MAX_USER_SCORES
//
// Stats configuration:
//   - APP_STATS_ENABLED, APP_STATS_STORAGE, APP_STATS_SQLITE_PATH, APP_STATS_SQLITE_WAL,
//     APP_STATS_BATCH_SIZE, APP_STATS_FLUSH_INTERVAL_MS, APP_STATS_RETENTION_HOT_DAYS,
//     APP_STATS_USER_HASH_SALT, APP_STATS_TIMEZONE, APP_STATS_DAILY_AGGREGATE_TIME
//   - APP_STATS_ARCHIVE_PARQUET, APP_STATS_ARCHIVE_DIR, APP_STATS_ARCHIVE_COMPRESS
//
// Leaderboard configuration:
//   - APP_LEADERBOARD_ENABLED, APP_LEADERBOARD_ALLOW_PUBLIC,
//     APP_LEADERBOARD_DEFAULT_SHOW_COMPOSITION, APP_LEADERBOARD_DEFAULT_SHOW_BEST_TOP3,
//     APP_LEADERBOARD_DEFAULT_SHOW_AP_TOP3, APP_LEADERBOARD_ADMIN_TOKENS
//
// Watermark configuration:
//   - APP_WATERMARK_EXPLICIT_BADGE, APP_WATERMARK_IMPLICIT_PIXEL, APP_WATERMARK_UNLOCK_STATIC,
//     APP_WATERMARK_UNLOCK_DYNAMIC, APP_WATERMARK_DYNAMIC_SALT, APP_WATERMARK_DYNAMIC_TTL_SECS,
//     APP_WATERMARK_DYNAMIC_SECRET, APP_WATERMARK_DYNAMIC_LENGTH
//
// TapTap configuration:
//   - APP_TAPTAP_DEFAULT_VERSION: cn or global
//
// Save configuration:
//   - APP_SAVE_AES_KEY_HEX: 32 hex characters decoding to the save container's
//     AES-128 key (Open Question OQ-1 resolution)
//
// Shutdown configuration:
//   - APP_SHUTDOWN_TIMEOUT_SECS, APP_SHUTDOWN_FORCE_QUIT, APP_SHUTDOWN_FORCE_DELAY_SECS
//   - APP_SHUTDOWN_WATCHDOG_ENABLED, APP_SHUTDOWN_WATCHDOG_TIMEOUT_SECS,
//     APP_SHUTDOWN_WATCHDOG_INTERVAL_SECS
//
// Logging configuration:
//   - APP_LOGGING_LEVEL: Log level (debug, info, warn, error, default: info)
//   - APP_LOGGING_FORMAT: Log format (json, text, default: json)
//
// # Environment Helpers
//
// Use environment detection helpers:
//
//	if cfg.IsDevelopment() {
//		// Development-specific logic
//	}
//
//	if cfg.IsProduction() {
//		// Production-specific logic
//	}
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents the application configuration loaded from environment
// variables, one section per spec.md §6.4 namespace.
type Config struct {
	Server      ServerConfig
	API         APIConfig
	Resources   ResourcesConfig
	Image       ImageConfig
	Stats       StatsConfig
	Leaderboard LeaderboardConfig
	Watermark   WatermarkConfig
	TapTap      TapTapConfig
	Save        SaveConfig
	Shutdown    ShutdownConfig
	Logging     LoggingConfig

	// Environment (development, staging, production, local)
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
}

// ServerConfig is the HTTP listener and connection-lifecycle tuning (spec.md §4.7).
type ServerConfig struct {
	Host      string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port      int    `envconfig:"SERVER_PORT" default:"8080"`
	ProbePort int    `envconfig:"SERVER_PROBE_PORT" default:"8081"`

	ReadHeaderTimeout time.Duration `envconfig:"SERVER_READ_HEADER_TIMEOUT" default:"500ms"`
	ReadTimeout       time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"2s"`
	HandlerTimeout    time.Duration `envconfig:"SERVER_HANDLER_TIMEOUT" default:"10s"`
	IdleTimeout       time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`

	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// APIConfig holds the route prefix spec.md §4.7 puts in front of every
// endpoint except /health, /docs, and /api-docs/openapi.json.
type APIConfig struct {
	Prefix string `envconfig:"API_PREFIX" default:"/api/v2"`
}

// ResourcesConfig locates the catalog data files and render template tree
// (spec.md §4.1, §4.4).
type ResourcesConfig struct {
	BasePath           string `envconfig:"RESOURCES_BASE_PATH" default:"./resources"`
	IllustrationRepo   string `envconfig:"RESOURCES_ILLUSTRATION_REPO"`
	IllustrationFolder string `envconfig:"RESOURCES_ILLUSTRATION_FOLDER" default:"illustrations"`
	InfoPath           string `envconfig:"RESOURCES_INFO_PATH"`
}

// ImageConfig tunes the ImageRenderer (spec.md §4.4).
type ImageConfig struct {
	OptimizeSpeed bool   `envconfig:"IMAGE_OPTIMIZE_SPEED" default:"false"`
	CacheEnabled  bool   `envconfig:"IMAGE_CACHE_ENABLED" default:"true"`
	CacheMaxBytes int64  `envconfig:"IMAGE_CACHE_MAX_BYTES" default:"268435456"`
	CacheTTLSecs  int    `envconfig:"IMAGE_CACHE_TTL_SECS" default:"3600"`
	CacheTTISecs  int    `envconfig:"IMAGE_CACHE_TTI_SECS" default:"600"`
	MaxParallel   int    `envconfig:"IMAGE_MAX_PARALLEL" default:"0"`
	MaxUserScores int    `envconfig:"IMAGE_MAX_USER_SCORES" default:"200"`
	PublicBaseURL string `envconfig:"IMAGE_PUBLIC_BASE_URL"`
}

// StatsConfig configures the telemetry pipeline and its embedded store
// (spec.md §4.5).
type StatsConfig struct {
	Enabled            bool   `envconfig:"STATS_ENABLED" default:"true"`
	Storage            string `envconfig:"STATS_STORAGE" default:"sqlite"`
	SqlitePath         string `envconfig:"STATS_SQLITE_PATH" default:"./resources/usage_stats.db"`
	SqliteWAL          bool   `envconfig:"STATS_SQLITE_WAL" default:"true"`
	BatchSize          int    `envconfig:"STATS_BATCH_SIZE" default:"200"`
	FlushIntervalMs    int    `envconfig:"STATS_FLUSH_INTERVAL_MS" default:"2000"`
	RetentionHotDays   int    `envconfig:"STATS_RETENTION_HOT_DAYS" default:"30"`
	UserHashSalt       string `envconfig:"STATS_USER_HASH_SALT"`
	Timezone           string `envconfig:"STATS_TIMEZONE" default:"UTC"`
	DailyAggregateTime string `envconfig:"STATS_DAILY_AGGREGATE_TIME" default:"00:10"`

	Archive StatsArchiveConfig
}

// StatsArchiveConfig is spec.md §4.5.7's daily columnar export.
type StatsArchiveConfig struct {
	Parquet  bool   `envconfig:"STATS_ARCHIVE_PARQUET" default:"true"`
	Dir      string `envconfig:"STATS_ARCHIVE_DIR" default:"./resources/archive"`
	Compress string `envconfig:"STATS_ARCHIVE_COMPRESS" default:"zstd"`
}

// LeaderboardConfig toggles the cross-player leaderboard (spec.md §4.5.3-§4.5.6).
type LeaderboardConfig struct {
	Enabled                bool     `envconfig:"LEADERBOARD_ENABLED" default:"true"`
	AllowPublic            bool     `envconfig:"LEADERBOARD_ALLOW_PUBLIC" default:"true"`
	DefaultShowComposition bool     `envconfig:"LEADERBOARD_DEFAULT_SHOW_COMPOSITION" default:"false"`
	DefaultShowBestTop3    bool     `envconfig:"LEADERBOARD_DEFAULT_SHOW_BEST_TOP3" default:"true"`
	DefaultShowApTop3      bool     `envconfig:"LEADERBOARD_DEFAULT_SHOW_AP_TOP3" default:"true"`
	AdminTokens            []string `envconfig:"LEADERBOARD_ADMIN_TOKENS"`

	// SuspicionReviewThreshold and SuspicionShadowThreshold tune the
	// anti-cheat scoring of spec.md §4.5.4.
	SuspicionReviewThreshold float64 `envconfig:"LEADERBOARD_SUSPICION_REVIEW_THRESHOLD" default:"0.5"`
	SuspicionShadowThreshold float64 `envconfig:"LEADERBOARD_SUSPICION_SHADOW_THRESHOLD" default:"1.0"`

	DefaultBestK int `envconfig:"LEADERBOARD_DEFAULT_BEST_K" default:"0"`
	MaxBestK     int `envconfig:"LEADERBOARD_MAX_BEST_K" default:"35"`
}

// WatermarkConfig is spec.md §6.5's rendered-image watermarking scheme.
type WatermarkConfig struct {
	ExplicitBadge  bool   `envconfig:"WATERMARK_EXPLICIT_BADGE" default:"true"`
	ImplicitPixel  bool   `envconfig:"WATERMARK_IMPLICIT_PIXEL" default:"false"`
	UnlockStatic   string `envconfig:"WATERMARK_UNLOCK_STATIC"`
	UnlockDynamic  bool   `envconfig:"WATERMARK_UNLOCK_DYNAMIC" default:"false"`
	DynamicSalt    string `envconfig:"WATERMARK_DYNAMIC_SALT"`
	DynamicTTLSecs int    `envconfig:"WATERMARK_DYNAMIC_TTL_SECS" default:"30"`
	DynamicSecret  string `envconfig:"WATERMARK_DYNAMIC_SECRET"`
	DynamicLength  int    `envconfig:"WATERMARK_DYNAMIC_LENGTH" default:"8"`
}

// TapTapConfig picks the default upstream region for device-code login
// (spec.md §4.6) when the caller's request omits one, and locates the two
// upstream device-authorization endpoints.
type TapTapConfig struct {
	DefaultVersion string `envconfig:"TAPTAP_DEFAULT_VERSION" default:"global"`
	EndpointCN     string `envconfig:"TAPTAP_ENDPOINT_CN" default:"https://open.tapapis.cn"`
	EndpointGlobal string `envconfig:"TAPTAP_ENDPOINT_GLOBAL" default:"https://open.tapapis.com"`
	ClientID       string `envconfig:"TAPTAP_CLIENT_ID"`
}

// SaveConfig carries the cloud-save container's decryption key
// (Open Question OQ-1: sourced from config rather than derived per-request)
// and the identity-provider endpoint Provider queries for save locations.
type SaveConfig struct {
	AesKeyHex string `envconfig:"SAVE_AES_KEY_HEX"`
	Endpoint  string `envconfig:"SAVE_ENDPOINT" default:"https://rak3ffdi.cloud.tds1.tapapis.cn"`
}

// ShutdownConfig is the phased-shutdown timing budget (pkg/shutdown).
type ShutdownConfig struct {
	TimeoutSecs    int  `envconfig:"SHUTDOWN_TIMEOUT_SECS" default:"30"`
	ForceQuit      bool `envconfig:"SHUTDOWN_FORCE_QUIT" default:"true"`
	ForceDelaySecs int  `envconfig:"SHUTDOWN_FORCE_DELAY_SECS" default:"5"`

	Watchdog ShutdownWatchdogConfig
}

// ShutdownWatchdogConfig guards against a shutdown phase that never returns.
type ShutdownWatchdogConfig struct {
	Enabled      bool `envconfig:"SHUTDOWN_WATCHDOG_ENABLED" default:"true"`
	TimeoutSecs  int  `envconfig:"SHUTDOWN_WATCHDOG_TIMEOUT_SECS" default:"60"`
	IntervalSecs int  `envconfig:"SHUTDOWN_WATCHDOG_INTERVAL_SECS" default:"5"`
}

// LoggingConfig represents logging-specific configuration.
type LoggingConfig struct {
	Level  string `envconfig:"LOGGING_LEVEL" default:"info"`
	Format string `envconfig:"LOGGING_FORMAT" default:"json"`
}

// Load loads configuration from environment variables.
// The prefix parameter is used to namespace environment variables.
// For example, with prefix "APP", environment variables like APP_SERVER_PORT will be loaded.
//
// Example:
//
//	cfg, err := config.Load("APP")
//	if err != nil {
//		return fmt.Errorf("failed to load config: %w", err)
//	}
func Load(prefix string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration according to the following rules:
//   - Server port: 1-65535 range
//   - Environment: local, development, staging, or production
//   - Log level: debug, info, warn, or error
//   - Log format: json or text
//   - TapTap default version: cn or global
//   - Watermark dynamic length: 4-64 (spec.md §6.4)
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if !oneOf(c.Environment, "local", "development", "staging", "production") {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if !oneOf(c.Logging.Format, "json", "text") {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if !oneOf(c.TapTap.DefaultVersion, "cn", "global") {
		return fmt.Errorf("invalid taptap default version: %s", c.TapTap.DefaultVersion)
	}

	if c.Watermark.DynamicLength < 4 || c.Watermark.DynamicLength > 64 {
		return fmt.Errorf("invalid watermark dynamic length: %d", c.Watermark.DynamicLength)
	}

	if !oneOf(c.Stats.Archive.Compress, "zstd", "snappy", "none") {
		return fmt.Errorf("invalid stats archive compression: %s", c.Stats.Archive.Compress)
	}

	return nil
}

func oneOf(value string, candidates ...string) bool {
	for _, c := range candidates {
		if value == c {
			return true
		}
	}
	return false
}

// IsDevelopment returns true if the environment is "development".
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if the environment is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsStaging returns true if the environment is "staging".
func (c *Config) IsStaging() bool {
	return c.Environment == "staging"
}

// IsLocal returns true if the environment is "local".
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}
