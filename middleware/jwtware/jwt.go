// Package jwtware authenticates net/http requests carrying a bearer token.
package jwtware

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-identity"
)

const defaultAuthScheme = "Bearer"

// Authenticator resolves a raw Authorization header value to a principal.
// identity.Authenticator implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*identity.Principal, error)
}

// Config configures the middleware.
type Config struct {
	// Filter skips authentication when it returns true.
	Filter func(*http.Request) bool
	// ErrorHandler writes the response for a failed authentication.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
	Logger       identity.Logger
}

// New returns middleware that rejects requests whose bearer token does not
// validate and stores the principal in the request context otherwise.
func New(auth Authenticator, cfg ...Config) func(http.Handler) http.Handler {
	c := Config{}
	if len(cfg) > 0 {
		c = cfg[0]
	}
	if c.ErrorHandler == nil {
		c.ErrorHandler = defaultErrorHandler
	}
	if c.Logger == nil {
		c.Logger = identity.DefaultLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c.Filter != nil && c.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			header := strings.TrimSpace(r.Header.Get("Authorization"))
			if !hasScheme(header) {
				c.ErrorHandler(w, r, identity.ErrTokenMalformed)
				return
			}

			principal, err := auth.Authenticate(r.Context(), header)
			if err != nil {
				if !identity.IsUnauthorized(err) {
					c.Logger.Error("bearer authentication failed: %v", err)
				}
				c.ErrorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), principal)))
		})
	}
}

func hasScheme(header string) bool {
	n := len(defaultAuthScheme)
	return len(header) > n+1 && strings.EqualFold(header[:n], defaultAuthScheme) && header[n] == ' '
}

// defaultErrorHandler answers 401 for every authentication failure with a
// fixed body and 500 for anything else.
func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if identity.IsUnauthorized(err) {
		w.Header().Set("WWW-Authenticate", defaultAuthScheme)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
