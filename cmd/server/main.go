package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"boardquest/internal/api"
	"boardquest/internal/app/board"
	gameapp "boardquest/internal/app/game"
	"boardquest/internal/app/ledger"
	"boardquest/internal/app/reward"
	"boardquest/internal/app/seat"
	"boardquest/internal/catalog"
	"boardquest/internal/platform/cache"
	"boardquest/internal/platform/config"
	"boardquest/internal/platform/db"
	"boardquest/internal/platform/migrate"
	"boardquest/internal/platform/mq"
	"boardquest/internal/platform/observability"
	"boardquest/internal/platform/telemetry"
	"boardquest/migrations"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := observability.NewLogger(cfg.Env, os.Stdout)

	tracer := telemetry.NoopTracer()
	if cfg.TracingEnabled {
		shutdown, err := telemetry.Setup(ctx, version)
		if err != nil {
			logger.Warn().Err(err).Msg("tracing setup failed; continuing without traces")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
			tracer = telemetry.Tracer("game")
		}
	}

	// The ledger is optional: without postgres games still run, castle
	// awards are just not recorded.
	var pg *pgxpool.Pool
	pg, err = db.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Warn().Err(err).Msg("postgres unavailable; running without ledger")
		pg = nil
	} else {
		defer pg.Close()
		var source fs.FS = migrations.FS
		if cfg.MigrationDir != "" {
			source = os.DirFS(cfg.MigrationDir)
		}
		applied, err := migrate.Up(ctx, pg, source)
		if err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
		if len(applied) > 0 {
			logger.Info().Strs("files", applied).Msg("migrations applied")
		}
	}

	var redisClient *redis.Client
	redisClient, err = cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; continuing without cache")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, err := mq.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable; using noop publisher")
		publisher = mq.NewNoopPublisher()
	}
	defer publisher.Close()

	cat, err := catalog.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("catalog invalid")
	}
	rewards := reward.NewGenerator(cat)
	seats := seat.NewService(cfg.SeatSecret, cfg.SeatTTL)

	deps := gameapp.Deps{
		Logger:    logger,
		Scheduler: gameapp.TimerScheduler{},
		Publisher: publisher,
		Tracer:    tracer,
		Builder:   board.NewBuilder(cat, rewards),
		Rewards:   rewards,
	}
	var totals api.TotalsReader
	if pg != nil {
		ledgerSvc := ledger.NewService(pg, redisClient, cfg.LedgerCacheTTL, publisher)
		deps.Ledger = ledgerSvc
		totals = ledgerSvc
	}

	manager := gameapp.NewManager(deps, gameapp.ConfigFrom(cfg), seats, cfg.MaxSessions)
	defer manager.Close()

	ready := func(ctx context.Context) error {
		if pg == nil {
			return nil
		}
		return db.Ping(ctx, pg)
	}
	handler := api.NewHandler(logger, manager, seats, totals, ready, cfg.CorsOrigin, cfg.MaxRequestBody)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("version", version).Bool("ledger", pg != nil).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
	logger.Info().Int("sessions", manager.Len()).Msg("server stopped")
}
