// Command migrate manages the arena's PostgreSQL schema.
//
// Usage:
//
//	migrate [-config path] up|down|version|steps N|force V
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/observability"
	"github.com/cory-johannsen/arena/migrations"
)

// migrateLogger adapts zap to golang-migrate's Logger.
type migrateLogger struct{ s *zap.SugaredLogger }

func (l migrateLogger) Printf(format string, v ...any) { l.s.Debugf(format, v...) }
func (l migrateLogger) Verbose() bool                  { return true }

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] up|down|version|steps N|force V\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("migrate").With(zap.String("database", cfg.Database.Name))

	if err := run(cfg.Database.DSN(), flag.Args(), logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
}

func run(dsn string, args []string, logger *zap.Logger) error {
	m, err := migrations.New(dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	m.Log = migrateLogger{s: logger.Sugar()}

	switch cmd := args[0]; cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s needs a number", cmd)
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("%s: %w", cmd, convErr)
		}
		if cmd == "steps" {
			err = m.Steps(n)
		} else {
			err = m.Force(n)
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("schema already current")
	} else if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("no migrations applied")
		return nil
	case err != nil:
		return fmt.Errorf("reading version: %w", err)
	}
	logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
