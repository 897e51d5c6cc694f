package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/WailSalutem-Health-Care/patient-service/internal/db"
	_ "github.com/lib/pq"
)

const defaultTestDSN = "host=localhost port=5432 user=patient password=patient dbname=patient_service_test sslmode=disable"

// SetupTestDB connects to the test database and applies the schema.
// TEST_DATABASE_URL overrides the local default.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	connStr := os.Getenv("TEST_DATABASE_URL")
	if connStr == "" {
		connStr = defaultTestDSN
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := conn.Ping(); err != nil {
		t.Fatalf("Failed to ping test database: %v", err)
	}

	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// CleanupTestDB removes all rows written by tests.
func CleanupTestDB(t *testing.T, conn *sql.DB) {
	t.Helper()

	if _, err := conn.Exec("TRUNCATE TABLE patients, users"); err != nil {
		t.Logf("Warning: Failed to clean up tables: %v", err)
	}
}

// InsertTestUser stores a user row for lookup tests.
func InsertTestUser(t *testing.T, conn *sql.DB, id, email, role string) {
	t.Helper()

	_, err := conn.Exec(
		`INSERT INTO users (id, email, password_hash, role) VALUES ($1, $2, $3, $4)`,
		id, email, "$2a$10$testhash", role,
	)
	if err != nil {
		t.Fatalf("Failed to insert test user: %v", err)
	}
}
