package database

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewTestClient creates a migrated test database client with CI/local
// environment detection. In CI (when CI_DATABASE_URL is set) it connects to an
// external PostgreSQL service container; locally it spins up a testcontainer.
func NewTestClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr == "" {
		t.Log("Using testcontainers for PostgreSQL")
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)

		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	} else {
		t.Log("Using external PostgreSQL from CI_DATABASE_URL")
	}

	db, err := sql.Open("pgx", connStr)
	require.NoError(t, err)

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	require.NoError(t, RunMigrations(db, "test"))

	client := NewClientFromDB(db)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestDatabaseClient_ConnectionPool(t *testing.T) {
	client := NewTestClient(t)
	ctx := context.Background()

	err := client.DB().PingContext(ctx)
	require.NoError(t, err)

	health, err := Health(ctx, client.DB())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxOpenConns, 0)
}

func TestMigrations_CreateExpectedTables(t *testing.T) {
	client := NewTestClient(t)
	ctx := context.Background()

	for _, table := range []string{"checkpoints", "llm_traces", "guardrail_violations", "recommendations"} {
		var exists bool
		err := client.DB().QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			table,
		).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "table %s should exist", table)
	}
}

func TestMigrations_Idempotent(t *testing.T) {
	client := NewTestClient(t)

	// A second run must be a no-op, not an error.
	require.NoError(t, RunMigrations(client.DB(), "test"))
}

func TestLoadConfigFromEnv(t *testing.T) {
	envKeys := []string{
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
		"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
	}
	for _, key := range envKeys {
		os.Unsetenv(key)
	}
	t.Cleanup(func() {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	})

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "quorum", cfg.User)
	assert.Equal(t, "quorum", cfg.Database)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)

	os.Setenv("DB_PORT", "not-a-port")
	_, err = LoadConfigFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid DB_PORT")
}
