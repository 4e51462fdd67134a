// Package store is GenTrack's persistence layer: a thin sqlx wrapper
// around Postgres exposing the target/check/incident query contract
// from spec section 4.3.
package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store wraps a Postgres connection pool and the schema it owns.
type Store struct {
	*sqlx.DB
}

// Open connects to Postgres at dsn and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{DB: db}
	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// InitSchema creates the target/check/incident tables if they do not
// already exist. It is additive and safe to run on every startup.
func (s *Store) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS targets (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		interval_seconds INTEGER NOT NULL,
		timeout_seconds INTEGER NOT NULL,
		expected_substring TEXT,
		expected_json_keys TEXT,
		max_latency_ms INTEGER,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS checks (
		id BIGSERIAL PRIMARY KEY,
		target_id BIGINT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
		checked_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		status_code INTEGER,
		latency_ms INTEGER,
		is_up BOOLEAN NOT NULL,
		reason_code TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_checks_target_checked_at
		ON checks (target_id, checked_at DESC);

	CREATE INDEX IF NOT EXISTS idx_checks_checked_at
		ON checks (checked_at DESC);

	CREATE TABLE IF NOT EXISTS incidents (
		id BIGSERIAL PRIMARY KEY,
		target_id BIGINT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		duration_seconds INTEGER,
		is_resolved BOOLEAN NOT NULL DEFAULT false,
		reason_code TEXT,
		reason_message TEXT,
		start_check_id BIGINT NOT NULL REFERENCES checks(id),
		recovery_check_id BIGINT REFERENCES checks(id)
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_target_open
		ON incidents (target_id) WHERE is_resolved = false;

	CREATE INDEX IF NOT EXISTS idx_incidents_target_started_at
		ON incidents (target_id, started_at DESC);
	`
	_, err := s.Exec(schema)
	return err
}
