package identity

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTClaims is the signed form of a TokenPayload
type JWTClaims struct {
	jwt.RegisteredClaims
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"sid,omitempty"`
}

// Payload converts the claims into a TokenPayload.
func (c *JWTClaims) Payload() TokenPayload {
	p := TokenPayload{
		Subject:    c.Subject,
		Username:   c.Username,
		Email:      c.Email,
		SessionRef: c.SessionID,
	}
	if c.IssuedAt != nil {
		p.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims == nil || claims.ID != "" {
		return
	}
	claims.ID = uuid.NewString()
}
