// Package api exposes the authenticator lifecycle over HTTP.
package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/adeilh/bearer/auth"
	"github.com/adeilh/bearer/httpx"
	"github.com/labstack/gommon/log"
)

// Options configures Handler.
type Options struct {
	// EnableIssue mounts POST /v1/authenticators. The endpoint trusts the
	// login info in the request body.
	EnableIssue bool
	Logger      *log.Logger
}

// Handler serves the /v1/authenticators routes.
type Handler struct {
	service     *auth.Service
	middleware  *auth.Middleware
	enableIssue bool
	logger      *log.Logger
}

type issueRequest struct {
	ProviderID  string `json:"providerId"`
	ProviderKey string `json:"providerKey"`
}

type authenticatorView struct {
	Token              string    `json:"token,omitempty"`
	ProviderID         string    `json:"providerId"`
	ProviderKey        string    `json:"providerKey"`
	LastUsedDate       time.Time `json:"lastUsedDate"`
	ExpirationDate     time.Time `json:"expirationDate"`
	IdleTimeoutSeconds int64     `json:"idleTimeoutSeconds,omitempty"`
}

type tokenView struct {
	Token string `json:"token"`
}

func New(service *auth.Service, middleware *auth.Middleware, opts Options) (*Handler, error) {
	if service == nil || middleware == nil {
		return nil, errors.New("api: service and middleware are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = auth.NewLogger("api")
	}
	return &Handler{
		service:     service,
		middleware:  middleware,
		enableIssue: opts.EnableIssue,
		logger:      logger,
	}, nil
}

// Register mounts the routes on a.
func (h *Handler) Register(a *httpx.App) {
	if h.enableIssue {
		a.POST("/v1/authenticators", h.issue)
	}
	current := a.Group("/v1/authenticators/current", httpx.AuthMiddleware(h.middleware))
	current.GET("", h.current)
	current.POST("/renew", h.renew)
	current.DELETE("", h.discard)
}

func (h *Handler) issue(c httpx.Context) error {
	var req issueRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "invalid body")
	}
	info := auth.LoginInfo{
		ProviderID:  strings.TrimSpace(req.ProviderID),
		ProviderKey: strings.TrimSpace(req.ProviderKey),
	}
	if info.ProviderID == "" || info.ProviderKey == "" {
		return httpx.HTTPError(httpx.StatusBadRequest, "providerId and providerKey are required")
	}

	ctx := c.Request().Context()
	a, err := h.service.Create(ctx, info)
	if err != nil {
		return h.failure(err)
	}
	token, err := h.service.Init(ctx, a)
	if err != nil {
		return h.failure(err)
	}
	h.service.Embed(token, c.Response())

	view := newView(a)
	view.Token = token
	return c.JSON(httpx.StatusCreated, view)
}

func (h *Handler) current(c httpx.Context) error {
	a, ok := httpx.CurrentAuthenticator(c)
	if !ok {
		return httpx.HTTPError(httpx.StatusUnauthorized, "not authenticated")
	}
	return c.JSON(httpx.StatusOK, newView(a))
}

func (h *Handler) renew(c httpx.Context) error {
	a, ok := httpx.CurrentAuthenticator(c)
	if !ok {
		return httpx.HTTPError(httpx.StatusUnauthorized, "not authenticated")
	}
	token, err := h.service.RenewAndEmbed(c.Request().Context(), a, c.Response())
	if err != nil {
		return h.failure(err)
	}
	return c.JSON(httpx.StatusOK, tokenView{Token: token})
}

func (h *Handler) discard(c httpx.Context) error {
	a, ok := httpx.CurrentAuthenticator(c)
	if !ok {
		return httpx.HTTPError(httpx.StatusUnauthorized, "not authenticated")
	}
	if err := h.service.Discard(c.Request().Context(), a); err != nil {
		return h.failure(err)
	}
	return c.NoContent(httpx.StatusNoContent)
}

// failure hides service errors behind their status; the service has
// already logged the details.
func (h *Handler) failure(err error) error {
	status := auth.StatusFor(err)
	if errors.Is(err, auth.ErrAuthenticatorRenewal) {
		h.logger.Warnj(log.JSON{"op": "renew", "status": status, "msg": "client must re-authenticate"})
	}
	return httpx.HTTPError(status, http.StatusText(status))
}

func newView(a auth.Authenticator) authenticatorView {
	view := authenticatorView{
		ProviderID:     a.LoginInfo.ProviderID,
		ProviderKey:    a.LoginInfo.ProviderKey,
		LastUsedDate:   a.LastUsedDate,
		ExpirationDate: a.ExpirationDate,
	}
	if a.HasIdleTimeout() {
		view.IdleTimeoutSeconds = int64(a.IdleTimeout / time.Second)
	}
	return view
}
