package auth

import (
	"context"
	"net/http"

	"github.com/labstack/gommon/log"
)

// Middleware authenticates requests carrying a token header: it retrieves
// the authenticator, rejects and discards dead ones, and persists the touch
// of live ones before calling the next handler.
type Middleware struct {
	service      *Service
	skipper      MiddlewareSkipper
	errorHandler MiddlewareErrorHandler
	optional     bool
}

type contextKey struct{}

func NewMiddleware(service *Service, opts ...MiddlewareOption) (*Middleware, error) {
	cfg, err := newMiddlewareConfig(service, opts...)
	if err != nil {
		return nil, err
	}
	return &Middleware{
		service:      cfg.service,
		skipper:      cfg.skipper,
		errorHandler: cfg.errorHandler,
		optional:     cfg.optional,
	}, nil
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m == nil {
		panic("auth: middleware is nil")
	}
	if next == nil {
		next = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		a, ok, err := m.service.Retrieve(ctx, r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}
		if !ok {
			m.reject(w, r, next, ErrNotAuthenticated)
			return
		}

		if !a.IsValid(m.service.Now()) {
			if err := m.service.Discard(ctx, a); err != nil {
				m.service.logger.Warnj(log.JSON{"op": "middleware", "authenticator": Fingerprint(a.ID), "error": err.Error()})
			}
			m.reject(w, r, next, ErrAuthenticatorInvalid)
			return
		}

		if touched, ok := m.service.Touch(a).(Touched); ok {
			a, err = m.service.Update(ctx, touched.Value)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(ContextWithAuthenticator(ctx, a)))
	})
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, next http.Handler, err error) {
	if m.optional {
		next.ServeHTTP(w, r)
		return
	}
	m.errorHandler(w, r, err)
}

// ContextWithAuthenticator returns a copy of ctx carrying a.
func ContextWithAuthenticator(ctx context.Context, a Authenticator) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// AuthenticatorFromContext returns the authenticator stored by Middleware.
func AuthenticatorFromContext(ctx context.Context) (Authenticator, bool) {
	if ctx == nil {
		return Authenticator{}, false
	}
	a, ok := ctx.Value(contextKey{}).(Authenticator)
	return a, ok
}
