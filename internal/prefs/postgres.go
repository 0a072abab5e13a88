package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/saaga0h/floorplan-dashboard/pkg/postgres"
)

const createPreferencesTable = `
CREATE TABLE IF NOT EXISTS dashboard_preferences (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertPreference = `
INSERT INTO dashboard_preferences (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

const selectPreference = `SELECT value FROM dashboard_preferences WHERE key = $1`

// PostgresStore persists preferences in the dashboard_preferences table
type PostgresStore struct {
	client postgres.Client
}

// NewPostgresStore wraps a connected Postgres client
func NewPostgresStore(client postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

// EnsureSchema creates the preferences table if it does not exist
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.client.Exec(ctx, createPreferencesTable); err != nil {
		return fmt.Errorf("failed to create dashboard_preferences: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.client.QueryRowScan(ctx, selectPreference, []interface{}{key}, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.client.Exec(ctx, upsertPreference, key, value); err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}
