package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	got, err := Load("APP")
	require.NoError(t, err)

	assert.Equal(t, "local", got.Environment)
	assert.Equal(t, 8080, got.Server.Port)
	assert.Equal(t, "0.0.0.0", got.Server.Host)
	assert.Equal(t, 500*time.Millisecond, got.Server.ReadHeaderTimeout)
	assert.Equal(t, "/api/v2", got.API.Prefix)
	assert.Equal(t, "./resources", got.Resources.BasePath)
	assert.Equal(t, 0, got.Image.MaxParallel)
	assert.True(t, got.Image.CacheEnabled)
	assert.Equal(t, "./resources/usage_stats.db", got.Stats.SqlitePath)
	assert.True(t, got.Stats.SqliteWAL)
	assert.Equal(t, "zstd", got.Stats.Archive.Compress)
	assert.True(t, got.Leaderboard.Enabled)
	assert.True(t, got.Leaderboard.DefaultShowBestTop3)
	assert.Equal(t, 8, got.Watermark.DynamicLength)
	assert.Equal(t, "global", got.TapTap.DefaultVersion)
	assert.Equal(t, 30, got.Shutdown.TimeoutSecs)
	assert.True(t, got.Shutdown.Watchdog.Enabled)
	assert.Equal(t, "info", got.Logging.Level)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_API_PREFIX", "/v9")
	t.Setenv("APP_STATS_SQLITE_PATH", "/tmp/stats.db")
	t.Setenv("APP_TAPTAP_DEFAULT_VERSION", "cn")
	t.Setenv("APP_WATERMARK_DYNAMIC_LENGTH", "16")
	t.Setenv("APP_LEADERBOARD_ADMIN_TOKENS", "tokenA,tokenB")

	got, err := Load("APP")
	require.NoError(t, err)

	assert.Equal(t, 9090, got.Server.Port)
	assert.Equal(t, "/v9", got.API.Prefix)
	assert.Equal(t, "/tmp/stats.db", got.Stats.SqlitePath)
	assert.Equal(t, "cn", got.TapTap.DefaultVersion)
	assert.Equal(t, 16, got.Watermark.DynamicLength)
	assert.Equal(t, []string{"tokenA", "tokenB"}, got.Leaderboard.AdminTokens)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: "local",
			Server:      ServerConfig{Port: 8080},
			Logging:     LoggingConfig{Level: "info", Format: "json"},
			TapTap:      TapTapConfig{DefaultVersion: "global"},
			Watermark:   WatermarkConfig{DynamicLength: 8},
			Stats:       StatsConfig{Archive: StatsArchiveConfig{Compress: "zstd"}},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("rejects invalid port", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects invalid environment", func(t *testing.T) {
		cfg := valid()
		cfg.Environment = "sandbox"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects invalid log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects invalid taptap version", func(t *testing.T) {
		cfg := valid()
		cfg.TapTap.DefaultVersion = "jp"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects watermark dynamic length out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Watermark.DynamicLength = 2
		assert.Error(t, cfg.Validate())

		cfg.Watermark.DynamicLength = 65
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects invalid archive compression", func(t *testing.T) {
		cfg := valid()
		cfg.Stats.Archive.Compress = "lz4"
		assert.Error(t, cfg.Validate())
	})
}

func TestConfigEnvironmentHelpers(t *testing.T) {
	cfg := &Config{Environment: "production"}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsStaging())
	assert.False(t, cfg.IsLocal())
}
