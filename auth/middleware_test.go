package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewMiddlewareRequiresService(t *testing.T) {
	if _, err := NewMiddleware(nil); err == nil {
		t.Fatalf("expected error when service is nil")
	}
}

func issueToken(t *testing.T, svc *Service) (Authenticator, string) {
	t.Helper()
	a, err := svc.Create(context.Background(), testLogin)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	token, err := svc.Init(context.Background(), a)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return a, token
}

func TestMiddlewareInjectsAuthenticatorIntoContext(t *testing.T) {
	clock := newFakeClock(t0)
	svc, store := newTestService(t, DefaultSettings(), clock)
	_, token := issueToken(t, svc)

	middleware, err := NewMiddleware(svc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(5 * time.Minute)
	req := requestWithToken(DefaultHeaderName, token)
	res := httptest.NewRecorder()

	var invoked bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		invoked = true
		a, ok := AuthenticatorFromContext(r.Context())
		if !ok {
			t.Fatalf("authenticator missing from context")
		}
		if a.ID != token || a.LoginInfo != testLogin {
			t.Fatalf("unexpected authenticator injected: %+v", a)
		}
		if !a.LastUsedDate.Equal(t0.Add(5 * time.Minute)) {
			t.Fatalf("context authenticator not touched: %v", a.LastUsedDate)
		}
	})

	middleware.Handler(next).ServeHTTP(res, req)

	if !invoked {
		t.Fatalf("expected next handler to be invoked")
	}
	if store.count("update") != 1 {
		t.Fatalf("touched authenticator should be persisted once, got %d", store.count("update"))
	}
	stored, _, _ := store.Find(context.Background(), token)
	if !stored.LastUsedDate.Equal(t0.Add(5 * time.Minute)) {
		t.Fatalf("stored LastUsedDate = %v", stored.LastUsedDate)
	}
}

func TestMiddlewareSkipsUpdateWithoutIdleTimeout(t *testing.T) {
	svc, store := newTestService(t, DefaultSettings().WithIdleTimeout(0), newFakeClock(t0))
	_, token := issueToken(t, svc)

	middleware, _ := NewMiddleware(svc)
	res := httptest.NewRecorder()
	middleware.Handler(nil).ServeHTTP(res, requestWithToken(DefaultHeaderName, token))

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if store.count("update") != 0 {
		t.Fatalf("Unchanged authenticator must not be persisted")
	}
}

func TestMiddlewareRejections(t *testing.T) {
	tests := []struct {
		name    string
		token   func(*testing.T, *Service, *fakeClock) string
		wantErr error
	}{
		{
			name:    "missing header",
			token:   func(*testing.T, *Service, *fakeClock) string { return "" },
			wantErr: ErrNotAuthenticated,
		},
		{
			name:    "unknown token",
			token:   func(*testing.T, *Service, *fakeClock) string { return "unknown" },
			wantErr: ErrNotAuthenticated,
		},
		{
			name: "idle timed out",
			token: func(t *testing.T, svc *Service, clock *fakeClock) string {
				_, token := issueToken(t, svc)
				clock.Advance(DefaultIdleTimeout)
				return token
			},
			wantErr: ErrAuthenticatorInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock(t0)
			svc, _ := newTestService(t, DefaultSettings(), clock)
			token := tt.token(t, svc, clock)

			var received error
			middleware, err := NewMiddleware(svc, WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
				received = err
				w.WriteHeader(http.StatusTeapot)
			}))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			res := httptest.NewRecorder()
			middleware.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				t.Fatalf("next handler must not run")
			})).ServeHTTP(res, requestWithToken(DefaultHeaderName, token))

			if !errors.Is(received, tt.wantErr) {
				t.Fatalf("error handler received %v, want %v", received, tt.wantErr)
			}
			if res.Code != http.StatusTeapot {
				t.Fatalf("status = %d", res.Code)
			}
		})
	}
}

func TestMiddlewareDiscardsInvalidAuthenticator(t *testing.T) {
	clock := newFakeClock(t0)
	svc, store := newTestService(t, DefaultSettings(), clock)
	_, token := issueToken(t, svc)
	clock.Advance(DefaultExpiry)

	middleware, _ := NewMiddleware(svc)
	res := httptest.NewRecorder()
	middleware.Handler(nil).ServeHTTP(res, requestWithToken(DefaultHeaderName, token))

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", res.Code)
	}
	if store.Len() != 0 {
		t.Fatalf("expired authenticator should have been discarded")
	}
}

func TestMiddlewareStoreFailure(t *testing.T) {
	svc, store := newTestService(t, DefaultSettings(), newFakeClock(t0))
	store.findErr = errBackend

	middleware, _ := NewMiddleware(svc)
	res := httptest.NewRecorder()
	middleware.Handler(nil).ServeHTTP(res, requestWithToken(DefaultHeaderName, "tok"))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", res.Code)
	}
}

func TestMiddlewareUpdateFailure(t *testing.T) {
	clock := newFakeClock(t0)
	svc, store := newTestService(t, DefaultSettings(), clock)
	_, token := issueToken(t, svc)
	store.updateErr = errBackend

	var received error
	middleware, _ := NewMiddleware(svc, WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
		received = err
	}))
	middleware.Handler(nil).ServeHTTP(httptest.NewRecorder(), requestWithToken(DefaultHeaderName, token))

	if !errors.Is(received, ErrAuthenticatorUpdate) {
		t.Fatalf("error handler received %v", received)
	}
}

func TestMiddlewareOptional(t *testing.T) {
	svc, _ := newTestService(t, DefaultSettings(), newFakeClock(t0))
	middleware, _ := NewMiddleware(svc, WithOptional())

	var invoked, authenticated bool
	middleware.Handler(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		invoked = true
		_, authenticated = AuthenticatorFromContext(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), requestWithToken(DefaultHeaderName, ""))

	if !invoked || authenticated {
		t.Fatalf("optional middleware: invoked=%v authenticated=%v", invoked, authenticated)
	}
}

func TestMiddlewareSkipperShortCircuits(t *testing.T) {
	svc, store := newTestService(t, DefaultSettings(), newFakeClock(t0))
	middleware, err := NewMiddleware(svc, WithSkipper(func(*http.Request) bool { return true }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var invoked bool
	middleware.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		invoked = true
	})).ServeHTTP(httptest.NewRecorder(), requestWithToken(DefaultHeaderName, "tok"))

	if !invoked {
		t.Fatalf("expected handler invocation")
	}
	if store.total() != 0 {
		t.Fatalf("store should not be called when skipped")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotAuthenticated, http.StatusUnauthorized},
		{ErrAuthenticatorInvalid, http.StatusUnauthorized},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{wrapError(ErrAuthenticatorRetrieval, Authenticator{}, context.Canceled), http.StatusGatewayTimeout},
		{wrapError(ErrAuthenticatorRetrieval, Authenticator{}, errBackend), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestAuthenticatorFromContextMissing(t *testing.T) {
	if _, ok := AuthenticatorFromContext(context.Background()); ok {
		t.Fatalf("expected no authenticator")
	}
}
