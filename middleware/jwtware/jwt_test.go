package jwtware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/middleware/jwtware"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, bearer string) (*identity.Principal, error) {
	args := m.Called(ctx, bearer)
	p, _ := args.Get(0).(*identity.Principal)
	return p, args.Error(1)
}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

func principalEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := identity.PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(p.Username))
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAcceptsValidBearer(t *testing.T) {
	auth := &MockAuthenticator{}
	auth.On("Authenticate", mock.Anything, "Bearer good").
		Return(&identity.Principal{AccountID: uuid.New(), Username: "jane"}, nil)

	h := jwtware.New(auth, jwtware.Config{Logger: quietLogger{}})(principalEcho())
	rec := serve(h, "Bearer good")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jane", rec.Body.String())
	auth.AssertExpectations(t)
}

func TestMiddlewareRejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
		err    error
		status int
	}{
		{"missing header", "", nil, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", nil, http.StatusUnauthorized},
		{"suspended", "Bearer t", identity.NewAccountSuspended("spam"), http.StatusUnauthorized},
		{"session invalid", "Bearer t", identity.ErrSessionInvalid, http.StatusUnauthorized},
		{"storage down", "Bearer t", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &MockAuthenticator{}
			if tt.err != nil {
				auth.On("Authenticate", mock.Anything, tt.header).Return(nil, tt.err)
			}

			h := jwtware.New(auth, jwtware.Config{Logger: quietLogger{}})(principalEcho())
			rec := serve(h, tt.header)

			assert.Equal(t, tt.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), "spam")
			if tt.err == nil {
				auth.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestMiddlewareFilterAndErrorHandler(t *testing.T) {
	auth := &MockAuthenticator{}
	var handled error

	h := jwtware.New(auth, jwtware.Config{
		Filter: func(r *http.Request) bool { return r.URL.Path == "/health" },
		ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
			handled = err
			w.WriteHeader(http.StatusForbidden)
		},
		Logger: quietLogger{},
	})(principalEcho())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = serve(h, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, identity.IsMalformedError(handled))
}
