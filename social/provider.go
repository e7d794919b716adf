// Package social resolves external identity provider profiles to local
// accounts and drives the OAuth callback flow on top of the resolver.
package social

import (
	"context"
	"fmt"
	"strings"
)

// Provider is an OAuth identity provider client.
type Provider interface {
	// Name returns the provider identifier (e.g., "google").
	Name() string

	// BuildAuthorizationURL returns the consent URL. It fails with a
	// configuration error when client credentials or the callback URL are unset.
	BuildAuthorizationURL(state string) (string, error)

	// ExchangeCode trades an authorization code for an access token.
	ExchangeCode(ctx context.Context, code string) (*Token, error)

	// FetchProfile fetches the user's profile using the access token.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)

	// ValidateAccessToken reports whether token was issued for this client.
	// Transport failures yield false.
	ValidateAccessToken(ctx context.Context, token string) bool
}

// Token represents an OAuth2 token response.
type Token struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the remaining lifetime in seconds, zero when unknown.
	ExpiresIn int64
	TokenType string
}

// Profile is the provider profile consumed by the Resolver.
type Profile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	DisplayName    string
	Locale         string
	AvatarURL      string
}

func (p Profile) normalized() Profile {
	p.Provider = strings.ToLower(strings.TrimSpace(p.Provider))
	p.ProviderUserID = strings.TrimSpace(p.ProviderUserID)
	p.Email = strings.TrimSpace(p.Email)
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Locale = strings.TrimSpace(p.Locale)
	p.AvatarURL = strings.TrimSpace(p.AvatarURL)
	return p
}

// ProfileFromClaims maps OpenID style userinfo claims to a Profile.
// Missing or mistyped claims become empty values.
func ProfileFromClaims(provider string, claims map[string]any) Profile {
	displayName := claimString(claims, "name")
	if displayName == "" {
		displayName = strings.TrimSpace(claimString(claims, "given_name") + " " + claimString(claims, "family_name"))
	}

	id := claimString(claims, "sub")
	if id == "" {
		id = claimString(claims, "id")
	}

	return Profile{
		Provider:       provider,
		ProviderUserID: id,
		Email:          claimString(claims, "email"),
		EmailVerified:  claimBool(claims, "email_verified") || claimBool(claims, "verified_email"),
		DisplayName:    displayName,
		Locale:         claimString(claims, "locale"),
		AvatarURL:      claimString(claims, "picture"),
	}
}

func claimString(claims map[string]any, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	}
	return ""
}

func claimBool(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}
