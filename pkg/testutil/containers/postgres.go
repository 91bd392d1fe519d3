//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"vigil/internal/platform/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and runs migrations.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("vigil_test"),
		tcpostgres.WithUsername("vigil"),
		tcpostgres.WithPassword("vigil"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := postgres.Open(url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to migrate schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		URL:       url,
		DB:        db,
	}
}

// TruncateAll empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateAll(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the database handle and stops the container.
func (p *PostgresContainer) Close(ctx context.Context) {
	_ = p.DB.Close()
	_ = p.Container.Terminate(ctx)
}
