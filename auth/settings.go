package auth

import (
	"errors"
	"strings"
	"time"
)

const (
	DefaultHeaderName  = "X-Auth-Token"
	DefaultIdleTimeout = 30 * time.Minute
	DefaultExpiry      = 12 * time.Hour
)

var ErrInvalidSettings = errors.New("auth: invalid authenticator settings")

// Settings controls authenticator lifetimes and the header that carries the
// token. Values are immutable; the With* methods return modified copies.
type Settings struct {
	HeaderName string
	// IdleTimeout of zero disables sliding expiration.
	IdleTimeout time.Duration
	Expiry      time.Duration
}

// DefaultSettings returns X-Auth-Token, a 30 minute idle timeout and a 12
// hour absolute expiry.
func DefaultSettings() Settings {
	return Settings{
		HeaderName:  DefaultHeaderName,
		IdleTimeout: DefaultIdleTimeout,
		Expiry:      DefaultExpiry,
	}
}

func (s Settings) WithHeaderName(name string) Settings {
	s.HeaderName = strings.TrimSpace(name)
	return s
}

func (s Settings) WithIdleTimeout(d time.Duration) Settings {
	if d < 0 {
		d = 0
	}
	s.IdleTimeout = d
	return s
}

func (s Settings) WithExpiry(d time.Duration) Settings {
	s.Expiry = d
	return s
}

// Validate rejects an empty header name or a non-positive expiry.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.HeaderName) == "" {
		return errors.Join(ErrInvalidSettings, errors.New("auth: header name is required"))
	}
	if s.Expiry <= 0 {
		return errors.Join(ErrInvalidSettings, errors.New("auth: expiry must be positive"))
	}
	if s.IdleTimeout < 0 {
		return errors.Join(ErrInvalidSettings, errors.New("auth: idle timeout must not be negative"))
	}
	return nil
}
