// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/authcore/internal/db"
)

const memoryDSN = "file::memory:?_pragma=foreign_keys(1)"

// Open returns a fresh, fully migrated SQLite database that is closed
// when the test ends.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()

	ctx := context.Background()
	database, err := db.Init(ctx, "sqlite", memoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })

	require.NoError(t, db.RunMigrations(ctx, database.DB, "sqlite"))
	return database
}
