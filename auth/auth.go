package auth

import (
	"context"
	"time"
)

// LoginInfo identifies an established login: the provider that authenticated
// the user and the provider-specific key of that user.
type LoginInfo struct {
	ProviderID  string `json:"providerId"`
	ProviderKey string `json:"providerKey"`
}

// Authenticator is the server-side record behind one issued bearer token.
// The ID doubles as the token value handed to the client.
type Authenticator struct {
	ID             string
	LoginInfo      LoginInfo
	LastUsedDate   time.Time
	ExpirationDate time.Time
	// IdleTimeout disables sliding expiration when <= 0.
	IdleTimeout time.Duration
}

// Store persists authenticators keyed by their ID.
//
// Find reports (zero, false, nil) for unknown ids; "not found" is never an
// error. Add fails with ErrDuplicateID when the id is already taken, Update
// fails with ErrUnknownAuthenticator when it is not, and Remove of an unknown
// id succeeds. Implementations must never rewrite an authenticator's ID.
type Store interface {
	Find(ctx context.Context, id string) (Authenticator, bool, error)
	Add(ctx context.Context, a Authenticator) (Authenticator, error)
	Update(ctx context.Context, a Authenticator) (Authenticator, error)
	Remove(ctx context.Context, id string) error
}

// Reaper is implemented by stores that need explicit removal of dead entries.
type Reaper interface {
	ReapExpired(ctx context.Context, now time.Time) (int, error)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// IDGenerator produces unguessable, effectively unique token identifiers.
type IDGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func(ctx context.Context) (string, error)

func (f IDGeneratorFunc) Generate(ctx context.Context) (string, error) { return f(ctx) }
