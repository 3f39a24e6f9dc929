package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"hellscape/internal/api"
	"hellscape/internal/config"
	"hellscape/internal/game"
	"hellscape/internal/logging"
	"hellscape/internal/recorder"
	"hellscape/internal/session"
)

// eventLogSampleTicks is how often event log totals are copied into metrics.
const eventLogSampleTicks = 50

func main() {
	configDir := flag.String("config", ".", "directory holding "+config.FileName+" and .env")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		boot := logging.New("info", true)
		boot.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	metrics := api.NewMetrics()

	engineCfg := cfg.EngineConfig()
	engineCfg.Logger = &logger
	engineCfg.Metrics = metrics
	engine := game.NewEngine(engineCfg)

	logger.Info().
		Uint32("seed", engineCfg.Seed).
		Int("tickRate", engineCfg.TickRate).
		Int("initialEnemies", engineCfg.InitialEnemies).
		Msg("hellscape starting")

	sessions := session.NewManager(engine, session.Options{
		Spawn:      engineCfg.PlayerSpawn,
		MaxPlayers: engineCfg.Limits.MaxPlayers,
		Logger:     logger,
	})

	server := api.NewServer(api.ServerConfig{
		Addr:        cfg.Server.Addr,
		Engine:      engine,
		Sessions:    sessions,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimitPerSecond,
			Burst:             cfg.Server.RateLimitBurst,
			CleanupInterval:   api.DefaultRateLimitConfig.CleanupInterval,
		},
		BroadcastHz: cfg.Server.BroadcastHz,
		AdminToken:  cfg.Server.AdminToken,
		Metrics:     metrics,
		Logger:      logger,
	})
	if cfg.Server.AdminToken == "" {
		logger.Warn().Msg("server.adminToken not set, admin routes disabled")
	}

	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		store, err := recorder.OpenSQLite(cfg.Recorder.Path, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		rec = recorder.New(store, recorder.Options{
			Seed:     engineCfg.Seed,
			TickRate: engineCfg.TickRate,
			Score:    engine.Score,
			Logger:   logger,
		})
		logger.Info().Str("path", cfg.Recorder.Path).Str("match", rec.MatchID()).Msg("match recorder enabled")
	}

	hub := server.Hub()
	sink := func(report game.TickReport) {
		hub.RecordShots(report.Tick, report.Shots)
		if rec != nil {
			rec.Record(report)
		}
		if report.Tick%eventLogSampleTicks == 0 {
			stats := engine.EventLogStats()
			total, _ := stats["total"].(uint64)
			dropped, _ := stats["dropped"].(uint64)
			metrics.ObserveEventLog(total, dropped)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(ctx, sink)
	})
	g.Go(func() error {
		return server.Run(ctx)
	})
	g.Go(func() error {
		return api.RunDebugServer(ctx, api.ObservabilityConfig{
			Enabled:    cfg.Debug.Enabled,
			ListenAddr: cfg.Debug.Addr,
		}, metrics, logger)
	})
	if rec != nil {
		g.Go(func() error {
			return rec.Run(ctx)
		})
	}
	if idle := time.Duration(cfg.Server.SessionIdleSeconds * float64(time.Second)); idle > 0 {
		g.Go(func() error {
			return pruneIdleSessions(ctx, sessions, idle)
		})
	}

	return g.Wait()
}

// pruneIdleSessions drops sessions that have not sent input for maxIdle.
func pruneIdleSessions(ctx context.Context, sessions *session.Manager, maxIdle time.Duration) error {
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			sessions.PruneIdle(maxIdle)
		}
	}
}
