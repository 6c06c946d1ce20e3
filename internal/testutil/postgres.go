// Package testutil holds shared fixtures: a migrated PostgreSQL container, an
// in-memory arena service and a telnet test client.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
	"github.com/cory-johannsen/arena/migrations"
)

// Postgres is a throwaway PostgreSQL 16 with the arena schema applied.
type Postgres struct {
	Store  *postgres.Store
	Config config.DatabaseConfig
}

// NewPostgres starts a container, migrates it and opens a Store on it.
// Everything is torn down when the test ends.
//
// Precondition: Docker must be available; the test is skipped in -short mode.
func NewPostgres(t *testing.T) *Postgres {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in -short mode")
	}
	ctx := context.Background()
	start := time.Now()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "arena",
				"POSTGRES_PASSWORD": "arena",
				"POSTGRES_DB":       "arena_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	cfg := config.DatabaseConfig{
		Enabled:         true,
		Host:            host,
		Port:            port.Int(),
		User:            "arena",
		Password:        "arena",
		Name:            "arena_test",
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	if err := migrations.Up(cfg.DSN()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	store, err := postgres.Open(ctx, cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(store.Close)

	t.Logf("postgres ready at %s:%d [%s]", cfg.Host, cfg.Port, time.Since(start).Round(time.Millisecond))
	return &Postgres{Store: store, Config: cfg}
}
