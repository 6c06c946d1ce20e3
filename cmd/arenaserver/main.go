// Package main provides the arena server: the combat engine behind telnet,
// HTTP/websocket and gRPC front ends in one process.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/arena"
	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/frontend/handlers"
	"github.com/cory-johannsen/arena/internal/frontend/telnet"
	"github.com/cory-johannsen/arena/internal/game/catalog"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/gameserver"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/internal/scripting"
	"github.com/cory-johannsen/arena/internal/server"
	"github.com/cory-johannsen/arena/internal/storage"
	"github.com/cory-johannsen/arena/internal/storage/memory"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
	"github.com/cory-johannsen/arena/internal/web"
	"github.com/cory-johannsen/arena/migrations"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	migrate := flag.Bool("migrate", false, "apply database migrations before serving")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()
	component := func(name string) *zap.Logger {
		return observability.ForComponent(logger, cfg.Server.Name, name)
	}

	logger.Info("starting arena server",
		zap.String("name", cfg.Server.Name),
		zap.String("mode", cfg.Server.Mode),
	)

	lifecycle := server.NewLifecycle(logger)

	// Persistence: PostgreSQL when enabled, otherwise in-memory stores.
	var (
		accounts storage.AccountStore
		reports  storage.ReportStore
	)
	if cfg.Database.Enabled {
		if *migrate {
			if err := migrations.Up(cfg.Database.DSN()); err != nil {
				logger.Fatal("applying migrations", zap.Error(err))
			}
			logger.Info("migrations applied")
		}
		dbStart := time.Now()
		db, err := postgres.Open(ctx, cfg.Database, component("postgres"))
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		accounts = db.Accounts
		reports = db.Reports
		lifecycle.Add("postgres", db.Monitor(30*time.Second))
	} else {
		logger.Warn("database disabled, accounts and reports are kept in memory")
		accounts = memory.NewAccountStore()
		reports = memory.NewReportStore()
	}

	// Content catalog.
	cat, err := catalog.Load(cfg.Catalog.Dir)
	if err != nil {
		logger.Fatal("loading catalog", zap.String("dir", cfg.Catalog.Dir), zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.String("dir", cfg.Catalog.Dir),
		zap.Int("heroes", len(cat.Heroes())),
		zap.Int("enemies", len(cat.EnemyIDs())),
		zap.Int("encounters", len(cat.Encounters())),
	)
	store := catalog.NewStore(cat)
	if cfg.Catalog.Watch && cfg.Catalog.Dir != "" {
		watcher, err := catalog.NewWatcher(cfg.Catalog.Dir, store, component("catalog"))
		if err != nil {
			logger.Fatal("watching catalog", zap.Error(err))
		}
		lifecycle.Add("catalog-watcher", watcher)
	}

	// Randomness and enemy AI.
	src := dice.NewSource(cfg.Combat.Seed)
	var policy combat.EnemyPolicy = combat.RandomPolicy{Src: src}
	if cfg.Catalog.ScriptDir != "" {
		scriptStart := time.Now()
		mgr := scripting.NewManager(dice.NewLoggedRoller(src, component("dice")), component("scripting"),
			scripting.DefaultInstructionLimit)
		if err := mgr.LoadDir(cfg.Catalog.ScriptDir); err != nil {
			logger.Fatal("loading AI scripts", zap.Error(err))
		}
		defer mgr.Close()
		policy = scripting.NewPolicy(mgr, policy, component("scripting"))
		logger.Info("AI scripts loaded",
			zap.String("dir", cfg.Catalog.ScriptDir),
			zap.Duration("elapsed", time.Since(scriptStart)),
		)
	}

	engine := combat.NewEngine(combat.EngineConfig{
		Rules:        arena.RulesFromConfig(cfg.Combat),
		TickInterval: cfg.Combat.TickInterval,
		Source:       src,
		Policy:       policy,
		Logger:       component("combat"),
	})
	svc := arena.New(arena.Config{
		Catalog:  store,
		Engine:   engine,
		Accounts: accounts,
		Reports:  reports,
		Logger:   component("arena"),
	})
	// Stops after the front ends and before the database.
	arenaDone := make(chan struct{})
	lifecycle.Add("arena", &server.FuncService{
		StartFn: func() error {
			<-arenaDone
			return nil
		},
		StopFn: func() {
			svc.Close()
			close(arenaDone)
		},
	})

	// Front ends.
	if cfg.Server.Mode != "headless" && cfg.Telnet.Enabled {
		handler := handlers.New(svc, cfg.Combat.TickInterval, component("telnet"))
		lifecycle.Add("telnet", telnet.NewAcceptor(cfg.Telnet, handler, component("telnet")))
	}
	if cfg.Server.Mode != "headless" && cfg.HTTP.Enabled {
		lifecycle.Add("http", web.NewServer(cfg.HTTP, svc, component("web")))
	}
	if cfg.GRPC.Enabled {
		lifecycle.Add("grpc", gameserver.NewServer(cfg.GRPC, svc, component("grpc")))
	}

	logger.Info("arena server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Strings("services", lifecycle.Names()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
