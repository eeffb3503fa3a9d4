//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wormhole-foundation/wormhole-dashboard-sub001/internal/store/postgres"
)

// watcherTables lists everything the embedded migrations create, in an
// order TRUNCATE accepts.
const watcherTables = `observed_blocks, observed_messages, signed_vaas, checkpoints,
	life_cycle, outbox_item_to_lifecycle_digest, inbox_item_to_lifecycle_digest`

// testDB connects to TEST_DB_URL when set and clears it; otherwise it
// starts a throwaway postgres container for the test.
func testDB(t *testing.T) *postgres.DB {
	t.Helper()
	if url := os.Getenv("TEST_DB_URL"); url != "" {
		db := connectMigrated(t, url)
		_, err := db.Exec("TRUNCATE " + watcherTables)
		require.NoError(t, err)
		return db
	}
	return connectMigrated(t, startContainer(t))
}

func startContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("watcher_test"),
		tcpostgres.WithUsername("watcher"),
		tcpostgres.WithPassword("watcher"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func connectMigrated(t *testing.T, url string) *postgres.DB {
	t.Helper()
	db, err := postgres.New(postgres.Config{
		URL:             url,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.RunMigrations(context.Background(), postgres.MigrationSource("")))
	return db
}
