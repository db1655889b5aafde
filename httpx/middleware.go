package httpx

import (
	"net/http"

	"github.com/adeilh/bearer/auth"
)

// AuthMiddleware runs an auth.Middleware in front of echo handlers. Errors
// returned by downstream handlers propagate to the echo error handler.
func AuthMiddleware(mw *auth.Middleware) MiddlewareFunc {
	if mw == nil {
		return func(next HandlerFunc) HandlerFunc {
			return func(c Context) error {
				return HTTPError(StatusInternalError, "auth middleware missing")
			}
		}
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(c Context) error {
			var nextErr error
			downstream := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				c.SetRequest(r)
				nextErr = next(c)
			})
			mw.Handler(downstream).ServeHTTP(c.Response(), c.Request())
			return nextErr
		}
	}
}

// CurrentAuthenticator returns the authenticator AuthMiddleware attached to
// the request.
func CurrentAuthenticator(c Context) (auth.Authenticator, bool) {
	return auth.AuthenticatorFromContext(c.Request().Context())
}
