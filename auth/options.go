package auth

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrNotAuthenticated     = errors.New("auth: not authenticated")
	ErrAuthenticatorInvalid = errors.New("auth: authenticator expired or idle timed out")
)

type MiddlewareSkipper func(*http.Request) bool

type MiddlewareErrorHandler func(http.ResponseWriter, *http.Request, error)

type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	service      *Service
	skipper      MiddlewareSkipper
	errorHandler MiddlewareErrorHandler
	optional     bool
}

func newMiddlewareConfig(service *Service, opts ...MiddlewareOption) (middlewareConfig, error) {
	if service == nil {
		return middlewareConfig{}, errors.New("auth: middleware requires an authenticator service")
	}
	cfg := middlewareConfig{
		service:      service,
		skipper:      defaultSkipper,
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.skipper == nil {
		cfg.skipper = defaultSkipper
	}
	if cfg.errorHandler == nil {
		cfg.errorHandler = defaultErrorHandler
	}
	return cfg, nil
}

func WithSkipper(skipper MiddlewareSkipper) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if skipper != nil {
			cfg.skipper = skipper
		}
	}
}

func WithErrorHandler(handler MiddlewareErrorHandler) MiddlewareOption {
	return func(cfg *middlewareConfig) {
		if handler != nil {
			cfg.errorHandler = handler
		}
	}
}

// WithOptional lets unauthenticated requests through without an
// authenticator in their context. Store failures still reach the error
// handler.
func WithOptional() MiddlewareOption {
	return func(cfg *middlewareConfig) {
		cfg.optional = true
	}
}

// StatusFor maps middleware and service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrAuthenticatorInvalid):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func defaultSkipper(*http.Request) bool { return false }

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := StatusFor(err)
	http.Error(w, http.StatusText(status), status)
}
