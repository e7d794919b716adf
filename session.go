package identity

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// sessionTokenBytes is the entropy of an opaque session token.
const sessionTokenBytes = 32

// NewSessionToken returns a random URL safe token.
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewSession creates a session for account expiring after ttl.
func NewSession(accountID uuid.UUID, longLived bool, ttl time.Duration, now time.Time) (*Session, error) {
	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	return &Session{
		ID:         uuid.New(),
		AccountID:  accountID,
		Token:      token,
		LongLived:  longLived,
		ExpiresAt:  now.Add(ttl),
		LastUsedAt: now,
		CreatedAt:  now,
	}, nil
}
