package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/adeilh/bearer/auth"
	"github.com/lib/pq"
)

const (
	findAuthenticatorQuery   = `SELECT provider_id, provider_key, last_used_at, expires_at, idle_timeout_ms FROM authenticators WHERE id_digest = $1`
	insertAuthenticatorQuery = `INSERT INTO authenticators (id_digest, provider_id, provider_key, last_used_at, expires_at, idle_timeout_ms) VALUES ($1, $2, $3, $4, $5, $6)`
	updateAuthenticatorQuery = `UPDATE authenticators SET provider_id = $2, provider_key = $3, last_used_at = $4, expires_at = $5, idle_timeout_ms = $6 WHERE id_digest = $1`
	deleteAuthenticatorQuery = `DELETE FROM authenticators WHERE id_digest = $1`
	deleteExpiredQuery       = `DELETE FROM authenticators WHERE expires_at <= $1 OR (idle_timeout_ms > 0 AND last_used_at + idle_timeout_ms * INTERVAL '1 millisecond' <= $1)`
)

const uniqueViolation = "23505"

// AuthenticatorRepository persists authenticators inside PostgreSQL.
type AuthenticatorRepository struct {
	db *sql.DB
}

var (
	_ auth.Store  = (*AuthenticatorRepository)(nil)
	_ auth.Reaper = (*AuthenticatorRepository)(nil)
)

// NewAuthenticatorRepository wraps an existing *sql.DB connection.
func NewAuthenticatorRepository(db *sql.DB) *AuthenticatorRepository {
	return &AuthenticatorRepository{db: db}
}

func (r *AuthenticatorRepository) Find(ctx context.Context, id string) (auth.Authenticator, bool, error) {
	var (
		a      = auth.Authenticator{ID: id}
		idleMS int64
	)
	err := r.db.QueryRowContext(ctx, findAuthenticatorQuery, auth.Digest(id)).Scan(
		&a.LoginInfo.ProviderID,
		&a.LoginInfo.ProviderKey,
		&a.LastUsedDate,
		&a.ExpirationDate,
		&idleMS,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.Authenticator{}, false, nil
		}
		return auth.Authenticator{}, false, err
	}
	a.LastUsedDate = a.LastUsedDate.UTC()
	a.ExpirationDate = a.ExpirationDate.UTC()
	a.IdleTimeout = time.Duration(idleMS) * time.Millisecond
	return a, true, nil
}

func (r *AuthenticatorRepository) Add(ctx context.Context, a auth.Authenticator) (auth.Authenticator, error) {
	if a.ID == "" {
		return auth.Authenticator{}, auth.ErrInvalidAuthenticator
	}
	_, err := r.db.ExecContext(ctx, insertAuthenticatorQuery, row(a)...)
	if err != nil {
		return auth.Authenticator{}, translateError(err)
	}
	return a, nil
}

func (r *AuthenticatorRepository) Update(ctx context.Context, a auth.Authenticator) (auth.Authenticator, error) {
	if a.ID == "" {
		return auth.Authenticator{}, auth.ErrInvalidAuthenticator
	}
	res, err := r.db.ExecContext(ctx, updateAuthenticatorQuery, row(a)...)
	if err != nil {
		return auth.Authenticator{}, translateError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return auth.Authenticator{}, err
	}
	if affected == 0 {
		return auth.Authenticator{}, auth.ErrUnknownAuthenticator
	}
	return a, nil
}

// Remove deletes the row for id. Removing an unknown id is not an error.
func (r *AuthenticatorRepository) Remove(ctx context.Context, id string) error {
	if id == "" {
		return auth.ErrInvalidAuthenticator
	}
	_, err := r.db.ExecContext(ctx, deleteAuthenticatorQuery, auth.Digest(id))
	return err
}

// ReapExpired deletes rows that are past their absolute expiry or idle
// deadline at now.
func (r *AuthenticatorRepository) ReapExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, deleteExpiredQuery, now.UTC())
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func row(a auth.Authenticator) []any {
	idle := a.IdleTimeout
	if idle < 0 {
		idle = 0
	}
	return []any{
		auth.Digest(a.ID),
		a.LoginInfo.ProviderID,
		a.LoginInfo.ProviderKey,
		a.LastUsedDate.UTC(),
		a.ExpirationDate.UTC(),
		idle.Milliseconds(),
	}
}

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return auth.ErrDuplicateID
	}
	return err
}
