package testutil

import (
	"database/sql"
	"testing"
	"reviewharvest/lib/telemetry"

	_ "modernc.org/sqlite"
)

// OpenMemoryDB opens a private in-memory sqlite database that is closed when
// the test finishes.
func OpenMemoryDB(t testing.TB) *sql.DB {
	cleanup := telemetry.SetupForTesting(t, "test:"+t.Name())
	t.Cleanup(cleanup)

	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: is a different database
	sqlite.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlite.Close()
	})
	return sqlite
}
