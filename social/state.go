package social

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultStateTTL bounds the time between BeginAuth and CompleteAuth.
const DefaultStateTTL = 10 * time.Minute

// StateManager seals and verifies the OAuth state parameter.
type StateManager interface {
	Encode(state *OAuthState) (string, error)
	Decode(token string) (*OAuthState, error)
}

// OAuthState is what BeginAuth round trips through the provider.
type OAuthState struct {
	Nonce     string
	Provider  string
	Extended  bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type stateClaims struct {
	Extended bool `json:"ext,omitempty"`
	jwt.RegisteredClaims
}

// SignedStateManager carries the state as an HS256 token. The state is
// signed, not encrypted: it only holds the provider and session options.
type SignedStateManager struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSignedStateManager creates a state manager signing with key.
func NewSignedStateManager(key []byte, ttl time.Duration) *SignedStateManager {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &SignedStateManager{key: key, ttl: ttl, now: time.Now}
}

// Encode fills in the nonce and timestamps when unset and signs the state.
func (sm *SignedStateManager) Encode(state *OAuthState) (string, error) {
	if state == nil || strings.TrimSpace(state.Provider) == "" {
		return "", ErrInvalidState
	}
	if len(sm.key) == 0 {
		return "", fmt.Errorf("oauth state signing key is empty")
	}

	now := sm.now()
	if state.IssuedAt.IsZero() {
		state.IssuedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = state.IssuedAt.Add(sm.ttl)
	}
	if state.Nonce == "" {
		nonce, err := generateNonce()
		if err != nil {
			return "", fmt.Errorf("failed to generate state nonce: %w", err)
		}
		state.Nonce = nonce
	}

	claims := stateClaims{
		Extended: state.Extended,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        state.Nonce,
			Subject:   state.Provider,
			IssuedAt:  jwt.NewNumericDate(state.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(state.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of token.
func (sm *SignedStateManager) Decode(token string) (*OAuthState, error) {
	claims := &stateClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return sm.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(sm.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrInvalidState
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidState
	}

	state := &OAuthState{
		Nonce:    claims.ID,
		Provider: claims.Subject,
		Extended: claims.Extended,
	}
	if claims.IssuedAt != nil {
		state.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		state.ExpiresAt = claims.ExpiresAt.Time
	}
	return state, nil
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
