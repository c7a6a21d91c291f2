// Package dbtest opens migrated in-memory SQLite databases for repository tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/imagebot/core/database"
)

// Open returns a fresh in-memory database with every migration applied.
// It is closed when the test ends.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	cfg := database.Config{Driver: database.DriverSQLite, Path: ":memory:"}
	ctx := context.Background()

	db, err := database.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db, cfg))
	return db
}
