package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the token and session options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetTokenTTL() time.Duration
	GetSessionTTL() time.Duration
	GetLongLivedSessionTTL() time.Duration
	GetRefreshTimeout() time.Duration
}

// AccountReader retrieves accounts by their primary key.
type AccountReader interface {
	FindAccountByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// SessionReader retrieves sessions by their primary key.
type SessionReader interface {
	FindSessionByID(ctx context.Context, id uuid.UUID) (*Session, error)
}

// SessionSink extends the liveness of a session. Implementations are
// invoked best-effort and off the request path.
type SessionSink interface {
	RefreshSession(ctx context.Context, sessionToken string, extendLongLived bool) error
}

// SessionSinkFunc adapts a function to the SessionSink interface.
type SessionSinkFunc func(ctx context.Context, sessionToken string, extendLongLived bool) error

// RefreshSession implements SessionSink.
func (f SessionSinkFunc) RefreshSession(ctx context.Context, sessionToken string, extendLongLived bool) error {
	if f == nil {
		return nil
	}
	return f(ctx, sessionToken, extendLongLived)
}

// Store is the storage collaborator consumed by the Authenticator.
// Every finder returns ErrRecordNotFound (or a wrapped sql.ErrNoRows) when
// the entity is absent and ErrStorageConflict on uniqueness violations.
type Store interface {
	AccountReader
	SessionReader
	FindAccountByEmailKey(ctx context.Context, key string) (*Account, error)
	FindAccountByUsernameKey(ctx context.Context, key string) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) (*Account, error)
	CreateSession(ctx context.Context, session *Session) (*Session, error)
}

// PasswordHasher hashes and verifies password credentials
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
