package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
)

// Params holds PostgreSQL connection settings.
type Params struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// Connect creates a connection to PostgreSQL with OpenTelemetry instrumentation
func Connect(ctx context.Context, p Params, logger *zap.Logger) (*sql.DB, error) {
	if p.Host == "" || p.User == "" || p.Password == "" || p.Name == "" {
		return nil, fmt.Errorf("missing required database settings")
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		p.Host, p.Port, p.User, p.Password, p.Name,
	)

	db, err := otelsql.Open("postgres", connStr,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(p.Name),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Register database stats for metrics
	_, err = otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBName(p.Name),
		),
	)
	if err != nil {
		logger.Warn("failed to register database stats metrics", zap.Error(err))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	logger.Info("connected to PostgreSQL", zap.String("database", p.Name))
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id              UUID PRIMARY KEY,
	name            VARCHAR(100) NOT NULL,
	email           TEXT NOT NULL,
	address         TEXT NOT NULL,
	date_of_birth   DATE,
	registered_date DATE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ,
	CONSTRAINT patients_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Migrate creates the tables used by the service if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
