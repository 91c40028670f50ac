// Package main provides the all-in-one dungeon server. It wires together
// configuration, database, world loading, scripting, and the HTTP surface.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/enrich"
	"github.com/cory-johannsen/dungeon/internal/game/command"
	"github.com/cory-johannsen/dungeon/internal/game/session"
	"github.com/cory-johannsen/dungeon/internal/game/world"
	"github.com/cory-johannsen/dungeon/internal/observability"
	"github.com/cory-johannsen/dungeon/internal/scripting"
	"github.com/cory-johannsen/dungeon/internal/server"
	"github.com/cory-johannsen/dungeon/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Initialize logger
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting dungeon server",
		zap.String("world_file", cfg.Game.WorldFile),
		zap.Bool("ai_enabled", cfg.AI.Enabled),
	)

	// Connect to PostgreSQL
	ctx := context.Background()
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Name),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	// Description enrichment, applied at world load only
	var enricher enrich.Enricher
	if cfg.AI.Enabled {
		client, err := enrich.NewClient(cfg.AI)
		if err != nil {
			logger.Fatal("initializing enrichment client", zap.Error(err))
		}
		enricher = client
	}

	// Each session gets its own world instance from this factory.
	newWorld := func() (*world.World, error) {
		w, err := world.LoadWorldFile(cfg.Game.WorldFile, logger)
		if err != nil {
			return nil, err
		}
		if enricher != nil {
			enrichCtx, cancel := context.WithTimeout(ctx, cfg.AI.Timeout)
			enrich.EnrichWorld(enrichCtx, enricher, w, logger)
			cancel()
		}
		return w, nil
	}

	// Fail fast on an unloadable world file.
	probeStart := time.Now()
	probe, err := world.LoadWorldFile(cfg.Game.WorldFile, logger)
	if err != nil {
		logger.Fatal("loading world", zap.Error(err))
	}
	logger.Info("world loaded",
		zap.String("scenario", probe.Scenario.Name),
		zap.Int("rooms", probe.Graph.Len()),
		zap.Duration("elapsed", time.Since(probeStart)),
	)

	// Item-use scripts
	scripts := scripting.NewManager(scripting.DefaultInstructionLimit, logger)
	if cfg.Game.ScriptDir != "" {
		if err := scripts.LoadDir(cfg.Game.ScriptDir); err != nil {
			logger.Fatal("loading scripts", zap.Error(err))
		}
		logger.Info("scripts loaded", zap.Int("count", scripts.Len()))
	}

	// Sessions and the interpreter
	store, err := session.NewMemoryStore(cfg.Game.SessionTTL, logger)
	if err != nil {
		logger.Fatal("creating session store", zap.Error(err))
	}
	interp := command.NewInterpreter(logger, newWorld, scripts)
	metrics := server.NewMetrics(store, start)

	accounts := postgres.NewAccountRepository(pool.DB())
	saves := postgres.NewSaveRepository(pool.DB())
	httpServer := server.NewHTTPServer(
		cfg.HTTP, logger, interp, store, accounts, saves, pool, newWorld, metrics,
	)

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	lifecycle.Add("session-janitor", &server.FuncService{
		StartFn: func() error {
			store.Janitor(janitorCtx, cfg.Game.SessionSweep)
			return nil
		},
		StopFn: stopJanitor,
	})

	lifecycle.Add("http", &server.FuncService{
		StartFn: httpServer.Start,
		StopFn:  httpServer.Stop,
	})

	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func() error {
			for {
				select {
				case <-janitorCtx.Done():
					return nil
				case <-time.After(30 * time.Second):
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
						continue
					}
					stat := pool.Stat()
					logger.Debug("database pool",
						zap.Int32("total_conns", stat.TotalConns()),
						zap.Int32("idle_conns", stat.IdleConns()),
					)
				}
			}
		},
		StopFn: func() {
			scripts.Close()
			pool.Close()
		},
	})

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("http_addr", cfg.HTTP.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
