// store_test.go provides the shared test database helper. Tests are
// skipped if PostgreSQL is not available.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"

	"autoblog/internal/database"
)

// testDSN returns the PostgreSQL connection string for testing.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "autoblog")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "autoblog")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openTestDB opens the test database, runs migrations and empties
// post_history. Callers decide whether an error skips or falls back.
func openTestDB(t *testing.T) (*sql.DB, error) {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		return nil, fmt.Errorf("cannot open DB: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB not reachable: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	db.Exec("DELETE FROM post_history")
	t.Cleanup(func() {
		db.Exec("DELETE FROM post_history")
		db.Close()
	})
	return db, nil
}
