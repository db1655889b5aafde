package postgres

import (
	"context"
	"database/sql"
)

// Connect opens a connection and ensures the authenticators schema exists.
func Connect(ctx context.Context, opts ...Option) (*sql.DB, error) {
	db, err := Open(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies AuthenticatorSchema.
func Migrate(ctx context.Context, db *sql.DB) error {
	return ApplyMigrations(ctx, db, AuthenticatorSchema...)
}
