package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/adeilh/bearer/auth"
	"github.com/lib/pq"
)

var (
	lastUsed = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	expires  = lastUsed.Add(12 * time.Hour)
)

func newMockRepository(t *testing.T) (*AuthenticatorRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewAuthenticatorRepository(db), mock
}

func testAuthenticator() auth.Authenticator {
	return auth.Authenticator{
		ID:             "token-1",
		LoginInfo:      auth.LoginInfo{ProviderID: "credentials", ProviderKey: "alice@example.com"},
		LastUsedDate:   lastUsed,
		ExpirationDate: expires,
		IdleTimeout:    30 * time.Minute,
	}
}

func TestAuthenticatorRepositoryFind(t *testing.T) {
	repo, mock := newMockRepository(t)
	a := testAuthenticator()

	mock.ExpectQuery(regexp.QuoteMeta(findAuthenticatorQuery)).
		WithArgs(auth.Digest(a.ID)).
		WillReturnRows(sqlmock.NewRows([]string{"provider_id", "provider_key", "last_used_at", "expires_at", "idle_timeout_ms"}).
			AddRow("credentials", "alice@example.com", lastUsed, expires, int64(1800000)))

	got, ok, err := repo.Find(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}
	if !ok {
		t.Fatalf("expected authenticator to be found")
	}
	if got != a {
		t.Fatalf("Find = %+v, want %+v", got, a)
	}
}

func TestAuthenticatorRepositoryFindMissing(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectQuery(regexp.QuoteMeta(findAuthenticatorQuery)).
		WithArgs(auth.Digest("missing")).
		WillReturnError(sql.ErrNoRows)

	_, ok, err := repo.Find(context.Background(), "missing")
	if err != nil || ok {
		t.Fatalf("Find = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestAuthenticatorRepositoryAdd(t *testing.T) {
	repo, mock := newMockRepository(t)
	a := testAuthenticator()

	mock.ExpectExec(regexp.QuoteMeta(insertAuthenticatorQuery)).
		WithArgs(auth.Digest(a.ID), "credentials", "alice@example.com", lastUsed, expires, int64(1800000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, err := repo.Add(context.Background(), a)
	if err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if stored.ID != a.ID {
		t.Fatalf("Add rewrote id to %q", stored.ID)
	}
}

func TestAuthenticatorRepositoryAddDuplicate(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(insertAuthenticatorQuery)).
		WillReturnError(&pq.Error{Code: "23505"})

	if _, err := repo.Add(context.Background(), testAuthenticator()); !errors.Is(err, auth.ErrDuplicateID) {
		t.Fatalf("Add error = %v, want ErrDuplicateID", err)
	}
}

func TestAuthenticatorRepositoryUpdate(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "existing", affected: 1},
		{name: "unknown", affected: 0, wantErr: auth.ErrUnknownAuthenticator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepository(t)
			a := testAuthenticator()
			a.LastUsedDate = lastUsed.Add(time.Minute)

			mock.ExpectExec(regexp.QuoteMeta(updateAuthenticatorQuery)).
				WithArgs(auth.Digest(a.ID), "credentials", "alice@example.com", a.LastUsedDate, expires, int64(1800000)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			_, err := repo.Update(context.Background(), a)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Update error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthenticatorRepositoryRemove(t *testing.T) {
	repo, mock := newMockRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(deleteAuthenticatorQuery)).
		WithArgs(auth.Digest("token-1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Remove(context.Background(), "token-1"); err != nil {
		t.Fatalf("Remove of an unknown id should succeed, got %v", err)
	}
}

func TestAuthenticatorRepositoryReapExpired(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := lastUsed.Add(time.Hour)
	mock.ExpectExec(regexp.QuoteMeta(deleteExpiredQuery)).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.ReapExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("ReapExpired error: %v", err)
	}
	if n != 3 {
		t.Fatalf("ReapExpired = %d, want 3", n)
	}
}

func TestAuthenticatorRepositoryWithService(t *testing.T) {
	repo, mock := newMockRepository(t)
	svc, err := auth.NewService(auth.ServiceConfig{
		Store:       repo,
		IDGenerator: auth.IDGeneratorFunc(func(context.Context) (string, error) { return "token-1", nil }),
		Clock:       auth.ClockFunc(func() time.Time { return lastUsed }),
	})
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}

	mock.ExpectExec(regexp.QuoteMeta(insertAuthenticatorQuery)).
		WithArgs(auth.Digest("token-1"), "credentials", "alice@example.com", lastUsed, expires, int64(1800000)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := svc.Create(context.Background(), auth.LoginInfo{ProviderID: "credentials", ProviderKey: "alice@example.com"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	token, err := svc.Init(context.Background(), a)
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if token != "token-1" {
		t.Fatalf("Init token = %q", token)
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	for _, stmt := range AuthenticatorSchema {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(AuthenticatorSchema[0])).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	if err := Migrate(context.Background(), db); err == nil {
		t.Fatalf("expected migration error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background()); !errors.Is(err, ErrMissingDSN) {
		t.Fatalf("Open error = %v, want ErrMissingDSN", err)
	}
}
