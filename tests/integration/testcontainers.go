// Package integration runs the service stack against a real PostgreSQL
// instance via testcontainers. These tests require Docker.
//
// Usage:
//
//	go test ./tests/integration/
//
// The package starts one PostgreSQL container, runs migrations, and tears
// everything down when the run finishes. Use -short to skip.
package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tropicaldog17/ledger/internal/db"
)

// TestContainer holds the PostgreSQL container and connection details
type TestContainer struct {
	Container testcontainers.Container
	DB        *db.DB
	Config    *db.Config
}

var suiteContainer *TestContainer

// GetSuiteContainer returns the shared container started in TestMain.
func GetSuiteContainer(t *testing.T) *TestContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if suiteContainer == nil {
		t.Fatal("suite container not initialized")
	}
	return suiteContainer
}

func setupWithContext(ctx context.Context) (*TestContainer, error) {
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("ledger_test"),
		postgres.WithUsername("ledger_user"),
		postgres.WithPassword("ledger_password"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp").WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	config := &db.Config{
		Host:     host,
		Port:     port.Port(),
		User:     "ledger_user",
		Password: "ledger_password",
		Name:     "ledger_test",
		SSLMode:  "disable",
	}

	database, err := db.Connect(config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &TestContainer{Container: pgContainer, DB: database, Config: config}, nil
}
