package auth

import "time"

// IsValid reports whether the authenticator may still be used at now. Both
// the absolute expiry and the idle timeout gate validity independently.
func (a Authenticator) IsValid(now time.Time) bool {
	return !a.IsExpired(now) && !a.IsTimedOut(now)
}

// IsExpired reports whether the absolute lifetime has elapsed. An
// ExpirationDate equal to now counts as expired.
func (a Authenticator) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpirationDate)
}

// IsTimedOut reports whether the idle timeout has elapsed since LastUsedDate.
func (a Authenticator) IsTimedOut(now time.Time) bool {
	if a.IdleTimeout <= 0 {
		return false
	}
	return !now.Before(a.LastUsedDate.Add(a.IdleTimeout))
}

// HasIdleTimeout reports whether sliding expiration applies.
func (a Authenticator) HasIdleTimeout() bool { return a.IdleTimeout > 0 }

// WithLastUsedDate returns a copy with LastUsedDate replaced.
func (a Authenticator) WithLastUsedDate(t time.Time) Authenticator {
	a.LastUsedDate = t
	return a
}

// deadline is the earliest instant at which the authenticator stops being valid.
func (a Authenticator) deadline() time.Time {
	if a.IdleTimeout <= 0 {
		return a.ExpirationDate
	}
	idle := a.LastUsedDate.Add(a.IdleTimeout)
	if idle.Before(a.ExpirationDate) {
		return idle
	}
	return a.ExpirationDate
}

// TouchResult is the outcome of Service.Touch: either Touched or Unchanged.
type TouchResult interface {
	Authenticator() Authenticator
	isTouchResult()
}

// Touched carries an authenticator whose LastUsedDate advanced and which
// must be persisted with Service.Update.
type Touched struct{ Value Authenticator }

// Unchanged carries the original authenticator; nothing needs persisting.
type Unchanged struct{ Value Authenticator }

func (t Touched) Authenticator() Authenticator   { return t.Value }
func (u Unchanged) Authenticator() Authenticator { return u.Value }

func (Touched) isTouchResult()   {}
func (Unchanged) isTouchResult() {}
