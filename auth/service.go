package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
)

// ServiceConfig wires the collaborators required by Service.
type ServiceConfig struct {
	Store       Store
	IDGenerator IDGenerator
	Clock       Clock
	// Settings falls back to DefaultSettings when left as the zero value.
	Settings Settings
	Logger   *log.Logger
}

// Service drives the authenticator lifecycle against a Store. Create and
// Touch only compute values; Init, Update, Renew and Discard are the only
// operations that write to the store.
type Service struct {
	store    Store
	ids      IDGenerator
	clock    Clock
	settings Settings
	logger   *log.Logger
}

// NewService builds a Service with the provided dependencies.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	settings := cfg.Settings
	if settings == (Settings{}) {
		settings = DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = SecureIDGenerator{}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = NewLogger("auth")
	}
	return &Service{
		store:    cfg.Store,
		ids:      ids,
		clock:    clock,
		settings: settings,
		logger:   logger,
	}, nil
}

// NewLogger returns a gommon logger at WARN level, the default for services
// built without an explicit logger.
func NewLogger(prefix string) *log.Logger {
	l := log.New(prefix)
	l.SetLevel(log.WARN)
	return l
}

// Settings returns the active settings.
func (s *Service) Settings() Settings { return s.settings }

// Now reads the service clock.
func (s *Service) Now() time.Time { return s.clock.Now() }

// WithSettings derives an independent Service whose settings are fn applied
// to the current ones. Store, clock, id generator and logger are shared.
func (s *Service) WithSettings(fn func(Settings) Settings) (*Service, error) {
	next := s.settings
	if fn != nil {
		next = fn(next)
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	clone := *s
	clone.settings = next
	return &clone, nil
}

// Create allocates a new, not yet persisted authenticator for info.
func (s *Service) Create(ctx context.Context, info LoginInfo) (Authenticator, error) {
	id, err := s.ids.Generate(ctx)
	if err == nil && id == "" {
		err = ErrIDGeneration
	}
	if err != nil {
		s.logFailure("create", Authenticator{LoginInfo: info}, err)
		return Authenticator{}, &Error{Kind: ErrAuthenticatorCreation, LoginInfo: info, Err: err}
	}
	now := s.clock.Now()
	return Authenticator{
		ID:             id,
		LoginInfo:      info,
		LastUsedDate:   now,
		ExpirationDate: now.Add(s.settings.Expiry),
		IdleTimeout:    s.settings.IdleTimeout,
	}, nil
}

// Token extracts the raw token from the configured header.
func (s *Service) Token(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	token := strings.TrimSpace(r.Header.Get(s.settings.HeaderName))
	return token, token != ""
}

// Retrieve loads the authenticator named by the request header. A missing
// header or an unknown token yields ok == false and no error; the store is
// not consulted when the header is absent.
func (s *Service) Retrieve(ctx context.Context, r *http.Request) (Authenticator, bool, error) {
	token, ok := s.Token(r)
	if !ok {
		return Authenticator{}, false, nil
	}
	a, found, err := s.store.Find(ctx, token)
	if err != nil {
		s.logFailure("retrieve", Authenticator{ID: token}, err)
		return Authenticator{}, false, &Error{Kind: ErrAuthenticatorRetrieval, ID: token, Err: err}
	}
	return a, found, nil
}

// Init persists a and returns its token.
func (s *Service) Init(ctx context.Context, a Authenticator) (string, error) {
	stored, err := s.store.Add(ctx, a)
	if err == nil && stored.ID != a.ID {
		err = ErrIDMismatch
	}
	if err != nil {
		s.logFailure("init", a, err)
		return "", wrapError(ErrAuthenticatorInitialization, a, err)
	}
	s.logger.Debugj(log.JSON{"op": "init", "authenticator": Fingerprint(a.ID), "provider": a.LoginInfo.ProviderID})
	return a.ID, nil
}

// Embed sets the token header on the outbound response.
func (s *Service) Embed(token string, w http.ResponseWriter) {
	w.Header().Set(s.settings.HeaderName, token)
}

// EmbedRequest returns a copy of r carrying token in the configured header;
// r itself is left untouched.
func (s *Service) EmbedRequest(token string, r *http.Request) *http.Request {
	clone := r.Clone(r.Context())
	clone.Header.Set(s.settings.HeaderName, token)
	return clone
}

// Touch advances LastUsedDate when the authenticator has an idle timeout.
// Only a Touched result needs to be persisted.
func (s *Service) Touch(a Authenticator) TouchResult {
	if !a.HasIdleTimeout() {
		return Unchanged{Value: a}
	}
	return Touched{Value: a.WithLastUsedDate(s.clock.Now())}
}

// Update overwrites the stored copy of a. The token never changes on a
// touch, so no header needs re-embedding.
func (s *Service) Update(ctx context.Context, a Authenticator) (Authenticator, error) {
	stored, err := s.store.Update(ctx, a)
	if err != nil {
		s.logFailure("update", a, err)
		return Authenticator{}, wrapError(ErrAuthenticatorUpdate, a, err)
	}
	return stored, nil
}

// Renew revokes a and issues a fresh authenticator for the same login. The
// old token is unusable as soon as its removal succeeds; if creating the
// replacement then fails the session is gone and the caller must
// re-authenticate.
func (s *Service) Renew(ctx context.Context, a Authenticator) (string, error) {
	if err := s.store.Remove(ctx, a.ID); err != nil {
		s.logFailure("renew", a, err)
		return "", wrapError(ErrAuthenticatorRenewal, a, err)
	}
	fresh, err := s.Create(ctx, a.LoginInfo)
	if err == nil {
		var token string
		if token, err = s.Init(ctx, fresh); err == nil {
			s.logger.Debugj(log.JSON{"op": "renew", "authenticator": Fingerprint(a.ID), "replacement": Fingerprint(token)})
			return token, nil
		}
	}
	s.logger.Errorj(log.JSON{
		"op":            "renew",
		"authenticator": Fingerprint(a.ID),
		"provider":      a.LoginInfo.ProviderID,
		"error":         err.Error(),
		"msg":           "old token revoked but no replacement issued; session lost",
	})
	return "", wrapError(ErrAuthenticatorRenewal, a, err)
}

// RenewAndEmbed renews a and embeds the new token into w.
func (s *Service) RenewAndEmbed(ctx context.Context, a Authenticator, w http.ResponseWriter) (string, error) {
	token, err := s.Renew(ctx, a)
	if err != nil {
		return "", err
	}
	s.Embed(token, w)
	return token, nil
}

// Discard removes the stored entry. Response headers are left alone; telling
// the client to drop the token is up to the caller.
func (s *Service) Discard(ctx context.Context, a Authenticator) error {
	if err := s.store.Remove(ctx, a.ID); err != nil {
		s.logFailure("discard", a, err)
		return wrapError(ErrAuthenticatorDiscarding, a, err)
	}
	s.logger.Debugj(log.JSON{"op": "discard", "authenticator": Fingerprint(a.ID)})
	return nil
}

func (s *Service) logFailure(op string, a Authenticator, err error) {
	entry := log.JSON{"op": op, "error": err.Error()}
	if a.ID != "" {
		entry["authenticator"] = Fingerprint(a.ID)
	}
	if a.LoginInfo.ProviderID != "" {
		entry["provider"] = a.LoginInfo.ProviderID
	}
	s.logger.Warnj(entry)
}
