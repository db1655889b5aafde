package auth

import (
	"errors"
	"fmt"
)

// AuthenticatorType names the authenticator in error messages and logs.
const AuthenticatorType = "bearer token authenticator"

// Operation kinds. A failure returned by a Service method matches that
// method's kind with errors.Is, alongside the underlying cause.
var (
	ErrAuthenticatorCreation       = errors.New("auth: authenticator creation failed")
	ErrAuthenticatorRetrieval      = errors.New("auth: authenticator retrieval failed")
	ErrAuthenticatorInitialization = errors.New("auth: authenticator initialization failed")
	ErrAuthenticatorUpdate         = errors.New("auth: authenticator update failed")
	ErrAuthenticatorRenewal        = errors.New("auth: authenticator renewal failed")
	ErrAuthenticatorDiscarding     = errors.New("auth: authenticator discarding failed")
)

// Store contract violations.
var (
	ErrDuplicateID          = errors.New("auth: authenticator id already exists")
	ErrUnknownAuthenticator = errors.New("auth: authenticator does not exist")
	ErrIDMismatch           = errors.New("auth: store rewrote authenticator id")
	ErrStoreRequired        = errors.New("auth: authenticator store is required")
)

// Error wraps a store or generator failure with the operation that caused it.
type Error struct {
	Kind      error
	ID        string
	LoginInfo LoginInfo
	Err       error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	// The id is the bearer token itself; only its fingerprint is printed.
	switch {
	case e.ID != "" && e.LoginInfo != (LoginInfo{}):
		msg = fmt.Sprintf("%s: %s %s for %s:%s", msg, AuthenticatorType, Fingerprint(e.ID), e.LoginInfo.ProviderID, e.LoginInfo.ProviderKey)
	case e.ID != "":
		msg = fmt.Sprintf("%s: %s %s", msg, AuthenticatorType, Fingerprint(e.ID))
	case e.LoginInfo != (LoginInfo{}):
		msg = fmt.Sprintf("%s: %s for %s:%s", msg, AuthenticatorType, e.LoginInfo.ProviderID, e.LoginInfo.ProviderKey)
	default:
		msg = fmt.Sprintf("%s: %s", msg, AuthenticatorType)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func wrapError(kind error, a Authenticator, err error) error {
	return &Error{Kind: kind, ID: a.ID, LoginInfo: a.LoginInfo, Err: err}
}
