package identity

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService signs and parses bearer tokens
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, audience []string, logger Logger) *TokenService {
	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}
	return &TokenService{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		audience:   aud,
		logger:     normalizeLogger(logger),
		now:        time.Now,
	}
}

// NewTokenServiceFromConfig builds a TokenService from a Config.
func NewTokenServiceFromConfig(cfg Config, logger Logger) *TokenService {
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenTTL(), cfg.GetIssuer(), cfg.GetAudience(), logger)
}

// Sign creates a signed token for the payload. Zero IssuedAt and ExpiresAt
// are filled from the service defaults.
func (ts *TokenService) Sign(payload TokenPayload) (string, time.Time, error) {
	if len(ts.signingKey) == 0 {
		return "", time.Time{}, errors.New("signing key is required", errors.CategoryInternal)
	}
	if payload.Subject == "" {
		return "", time.Time{}, errors.New("token subject is required", errors.CategoryBadInput)
	}

	issuedAt := payload.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = ts.now()
	}
	expiresAt := payload.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = issuedAt.Add(ts.ttl)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   payload.Subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Username:  payload.Username,
		Email:     payload.Email,
		SessionID: payload.SessionRef,
	}
	ensureTokenID(&claims.RegisteredClaims)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, expiresAt, nil
}

// Parse validates a token string and returns its payload
func (ts *TokenService) Parse(tokenString string) (TokenPayload, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenPayload{}, ErrTokenExpired
		}
		rich := ErrTokenMalformed.Clone()
		rich.Source = err
		return TokenPayload{}, rich
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("token service could not decode claims")
		return TokenPayload{}, ErrTokenMalformed
	}

	if !ts.acceptsAudience(claims.Audience) {
		rich := ErrTokenMalformed.Clone()
		rich.Source = jwt.ErrTokenInvalidAudience
		return TokenPayload{}, rich
	}

	return claims.Payload(), nil
}

// acceptsAudience reports whether any audience in the token is one the
// service was configured with. An unconfigured service accepts any token.
func (ts *TokenService) acceptsAudience(aud jwt.ClaimStrings) bool {
	if len(ts.audience) == 0 {
		return true
	}
	for _, want := range ts.audience {
		if slices.Contains(aud, want) {
			return true
		}
	}
	return false
}
