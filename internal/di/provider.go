package di

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pannpers/go-logging/logging"

	httpadapter "github.com/liverty-music/backend/internal/adapter/http"
	"github.com/liverty-music/backend/internal/infrastructure/auth"
	"github.com/liverty-music/backend/internal/infrastructure/catalog"
	"github.com/liverty-music/backend/internal/infrastructure/database/rdb"
	"github.com/liverty-music/backend/internal/infrastructure/render"
	"github.com/liverty-music/backend/internal/infrastructure/save"
	"github.com/liverty-music/backend/internal/infrastructure/server"
	"github.com/liverty-music/backend/internal/infrastructure/stats"
	"github.com/liverty-music/backend/internal/usecase"
	"github.com/liverty-music/backend/pkg/config"
	"github.com/liverty-music/backend/pkg/shutdown"
)

// InitializeApp wires every component and returns a ready-to-run App.
// Mirrors the teacher's InitializeApp: load and validate config, build
// the logger, open the datastore, wire repositories then infrastructure
// then usecases then handlers, and finally the server and its shutdown
// phases.
func InitializeApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load("APP")
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := provideLogger(cfg)
	if err != nil {
		return nil, err
	}

	if len(cfg.Server.AllowedOrigins) == 0 {
		logger.Warn(ctx, "⚠️  CORS not configured, browser requests will fail")
	}

	db, err := rdb.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	shutdown.Init(logger)

	// Repositories
	leaderboardRepo := rdb.NewLeaderboardRepository(db)
	detailsRepo := rdb.NewLeaderboardDetailsRepository(db)
	submissionRepo := rdb.NewSubmissionRepository(db)
	profileRepo := rdb.NewProfileRepository(db)
	moderationRepo := rdb.NewModerationRepository(db)
	eventRepo := rdb.NewEventRepository(db)

	// Catalog (spec.md §4.1): process-wide song/chart/alias index.
	cat, err := catalog.Load(cfg.Resources.BasePath, filepath.Join(cfg.Resources.BasePath, "alias.yml"))
	if err != nil {
		return nil, fmt.Errorf("load song catalog: %w", err)
	}

	// Hasher (spec.md §4.5.2): nil disables identifier hashing entirely
	// when no salt is configured.
	var hasher *stats.Hasher
	if cfg.Stats.UserHashSalt != "" {
		hasher = stats.NewHasher(cfg.Stats.UserHashSalt)
	} else {
		logger.Warn(ctx, "⚠️  stats user hash salt not configured, user/IP hashing is disabled")
	}

	// Telemetry ingest + archive pipeline (spec.md §4.5), gated on
	// cfg.Stats.Enabled so a deployment can disable the pipeline outright.
	var ingestor *stats.Ingestor
	var archiver *stats.Archiver
	if cfg.Stats.Enabled {
		ingestor = stats.NewIngestor(eventRepo, logger, cfg.Stats.BatchSize, time.Duration(cfg.Stats.FlushIntervalMs)*time.Millisecond)

		tz, err := time.LoadLocation(cfg.Stats.Timezone)
		if err != nil {
			tz = time.UTC
		}
		dailyAt, err := time.ParseDuration(dailyAggregateOffset(cfg.Stats.DailyAggregateTime))
		if err != nil {
			dailyAt = 10 * time.Minute
		}
		if cfg.Stats.Archive.Parquet {
			archiver = stats.NewArchiver(eventRepo, logger, cfg.Stats.Archive.Dir, tz, dailyAt, stats.Compression(cfg.Stats.Archive.Compress))
			archiver.Start()
		}
	} else {
		logger.Warn(ctx, "⚠️  stats pipeline disabled, usage telemetry will not be recorded")
	}

	// Save container decryption key (Open Question OQ-1).
	var saveKey [16]byte
	if cfg.Save.AesKeyHex != "" {
		keyBytes, err := hex.DecodeString(cfg.Save.AesKeyHex)
		if err != nil || len(keyBytes) != 16 {
			return nil, fmt.Errorf("invalid save.aesKeyHex: must be 32 hex characters")
		}
		copy(saveKey[:], keyBytes)
	} else {
		logger.Warn(ctx, "⚠️  save.aesKeyHex not configured, cloud save decryption will fail")
	}
	saveProvider := save.NewProvider(cfg.Save.Endpoint, saveKey)

	// Render pipeline (spec.md §4.4): templates parsed on first use and
	// reparsed when the file changes, held behind a bounded-concurrency gate
	// and an optional LRU cache with TTL/TTI expiry.
	templates := render.NewTemplateStore(cfg.Resources.BasePath)
	var renderCache *render.Cache
	if cfg.Image.CacheEnabled {
		renderCache = render.NewCache(cfg.Image.CacheMaxBytes, time.Duration(cfg.Image.CacheTTLSecs)*time.Second, time.Duration(cfg.Image.CacheTTISecs)*time.Second)
	}
	renderGate := render.NewGate(cfg.Image.MaxParallel)
	renderer := render.NewRenderer(templates, renderCache, renderGate)

	watermarkCfg := render.WatermarkConfig{
		ExplicitBadge:  cfg.Watermark.ExplicitBadge,
		ImplicitPixel:  cfg.Watermark.ImplicitPixel,
		UnlockStatic:   cfg.Watermark.UnlockStatic,
		UnlockDynamic:  cfg.Watermark.UnlockDynamic,
		DynamicSalt:    cfg.Watermark.DynamicSalt,
		DynamicTTLSecs: int64(cfg.Watermark.DynamicTTLSecs),
		DynamicSecret:  cfg.Watermark.DynamicSecret,
		DynamicLength:  cfg.Watermark.DynamicLength,
	}

	// Auth (spec.md §4.6): device-code login against the two TapTap
	// regional upstreams.
	authClient := auth.NewClient(auth.Endpoints{CN: cfg.TapTap.EndpointCN, Global: cfg.TapTap.EndpointGlobal}, cfg.TapTap.ClientID)
	sessions := auth.NewSessionStore()
	authService := auth.NewService(authClient, sessions)

	// Use cases
	authUC := usecase.NewAuthUseCase(authService, hasher, logger)

	suspicionCfg := usecase.SuspicionConfig{
		ReviewThreshold: cfg.Leaderboard.SuspicionReviewThreshold,
		ShadowThreshold: cfg.Leaderboard.SuspicionShadowThreshold,
	}
	leaderboardUC := usecase.NewLeaderboardUseCase(
		leaderboardRepo, detailsRepo, submissionRepo, profileRepo, moderationRepo, eventRepo,
		cat, suspicionCfg, logger,
	)

	saveUC := usecase.NewSaveUseCase(saveProvider, hasher, cat, leaderboardUC, cfg.Leaderboard.DefaultBestK, cfg.Leaderboard.MaxBestK, logger)

	imageUC := usecase.NewImageUseCase(
		saveProvider, renderer, cat, hasher,
		cfg.Resources.InfoPath,
		cfg.Image.PublicBaseURL, cfg.Resources.IllustrationFolder, cfg.Resources.IllustrationRepo,
		watermarkCfg, cfg.Image.MaxUserScores,
		logger,
	)

	statsUC := usecase.NewStatsUseCase(eventRepo, archiver, logger)

	songHandler := httpadapter.NewSongHandler(cat)
	handlers := httpadapter.NewHandlers(authUC, saveUC, imageUC, leaderboardUC, statsUC, songHandler)

	srv := server.New(cfg, logger, ingestor, hasher, handlers.Register)

	probeAddr := fmt.Sprintf(":%d", cfg.Server.ProbePort)
	probeServer := server.NewProbeServer(probeAddr)
	go func() {
		if err := probeServer.Start(); err != nil {
			logger.Warn(ctx, "probe server stopped", slog.String("error", err.Error()))
		}
	}()

	// Shutdown phases, ordered per pkg/shutdown: drain background
	// producers, flush buffered telemetry, close outbound clients,
	// flush observability, close datastores last.
	shutdown.AddDrainPhase(sessions)
	if ingestor != nil {
		shutdown.AddFlushPhase(ingestor)
	}
	if archiver != nil {
		shutdown.AddObservePhase(archiver)
	}
	shutdown.AddDatastorePhase(db)

	return &App{
		Server:          srv,
		ProbeServer:     probeServer,
		Logger:          logger,
		ShutdownTimeout: time.Duration(cfg.Shutdown.TimeoutSecs) * time.Second,
	}, nil
}

func provideLogger(cfg *config.Config) (*logging.Logger, error) {
	var opts []logging.Option
	switch cfg.Logging.Level {
	case "debug":
		opts = append(opts, logging.WithLevel(slog.LevelDebug))
	case "info":
		opts = append(opts, logging.WithLevel(slog.LevelInfo))
	case "warn":
		opts = append(opts, logging.WithLevel(slog.LevelWarn))
	case "error":
		opts = append(opts, logging.WithLevel(slog.LevelError))
	}
	switch cfg.Logging.Format {
	case "text":
		opts = append(opts, logging.WithFormat(logging.FormatText))
	case "json":
		opts = append(opts, logging.WithFormat(logging.FormatJSON))
	}
	return logging.New(opts...)
}

// dailyAggregateOffset converts "HH:MM" into a time.ParseDuration string
// (e.g. "00:10" -> "0h10m"), the offset from local midnight the archiver
// anchors its daily run to.
func dailyAggregateOffset(hhmm string) string {
	var h, m int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m); err != nil {
		return "10m"
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
