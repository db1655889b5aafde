package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AuthenticatorSchema creates the authenticators table. Rows are keyed by
// the token digest; raw tokens are never written.
var AuthenticatorSchema = []string{
	`CREATE TABLE IF NOT EXISTS authenticators (
	id_digest       TEXT PRIMARY KEY,
	provider_id     TEXT NOT NULL,
	provider_key    TEXT NOT NULL,
	last_used_at    TIMESTAMPTZ NOT NULL,
	expires_at      TIMESTAMPTZ NOT NULL,
	idle_timeout_ms BIGINT NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS authenticators_expires_at_idx ON authenticators (expires_at)`,
}

// ApplyMigrations executes the statements in order inside one transaction.
func ApplyMigrations(ctx context.Context, db *sql.DB, statements ...string) (err error) {
	if db == nil {
		return errors.New("postgres: db is nil")
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if stmt == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}
