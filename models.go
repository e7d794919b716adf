package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-identity/sanitize"
)

// Account is the local account model
type Account struct {
	bun.BaseModel    `bun:"table:accounts,alias:acc"`
	ID               uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Username         string    `bun:"username,notnull" json:"username"`
	UsernameKey      string    `bun:"username_key,notnull,unique" json:"-"`
	Email            string    `bun:"email,nullzero" json:"email,omitempty"`
	EmailKey         string    `bun:"email_key,nullzero,unique" json:"-"`
	PasswordHash     string    `bun:"password_hash,nullzero" json:"-"`
	DisplayName      string    `bun:"display_name" json:"display_name,omitempty"`
	EmailVerified    bool      `bun:"email_verified,notnull" json:"email_verified"`
	IsVerified       bool      `bun:"is_verified,notnull" json:"is_verified"`
	IsSuspended      bool      `bun:"is_suspended,notnull" json:"is_suspended"`
	SuspensionReason string    `bun:"suspension_reason,nullzero" json:"suspension_reason,omitempty"`
	FollowersCount   int64     `bun:"followers_count,notnull" json:"followers_count"`
	FollowingCount   int64     `bun:"following_count,notnull" json:"following_count"`
	PostsCount       int64     `bun:"posts_count,notnull" json:"posts_count"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// SetUsername stores the display cased username and its comparison key.
func (a *Account) SetUsername(username string) *Account {
	a.Username = strings.TrimSpace(username)
	a.UsernameKey = ComparisonKey(a.Username)
	return a
}

// SetEmail stores the trimmed email as given and its provider-canonical
// comparison key.
func (a *Account) SetEmail(email string) *Account {
	a.Email = strings.TrimSpace(email)
	a.EmailKey = EmailComparisonKey(a.Email)
	return a
}

// HasPassword reports whether the account can sign in with a password.
func (a *Account) HasPassword() bool {
	return a != nil && a.PasswordHash != ""
}

// ExternalIdentityLink binds a provider identity to an Account
type ExternalIdentityLink struct {
	bun.BaseModel     `bun:"table:external_identity_links,alias:eil"`
	ID                uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	AccountID         uuid.UUID `bun:"account_id,notnull,type:uuid" json:"account_id"`
	Provider          string    `bun:"provider,notnull,unique:provider_account" json:"provider"`
	ProviderAccountID string    `bun:"provider_account_id,notnull,unique:provider_account" json:"provider_account_id"`
	Email             string    `bun:"email,nullzero" json:"email,omitempty"`
	CreatedAt         time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Session is a server tracked login instance
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	AccountID     uuid.UUID `bun:"account_id,notnull,type:uuid" json:"account_id"`
	Token         string    `bun:"token,notnull,unique" json:"-"`
	LongLived     bool      `bun:"long_lived,notnull" json:"long_lived"`
	ExpiresAt     time.Time `bun:"expires_at,notnull" json:"expires_at"`
	LastUsedAt    time.Time `bun:"last_used_at,notnull" json:"last_used_at"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// TokenPayload is the short lived capability carried by a bearer token.
// Only SessionRef is trusted as is, every other field is re-verified.
type TokenPayload struct {
	Subject    string    `json:"sub"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	SessionRef string    `json:"sid,omitempty"`
	IssuedAt   time.Time `json:"iat"`
	ExpiresAt  time.Time `json:"exp"`
}

// HasSession reports whether the payload references a server session.
func (p TokenPayload) HasSession() bool {
	return strings.TrimSpace(p.SessionRef) != ""
}

// Principal is the minimal identity attached to an accepted request.
type Principal struct {
	AccountID     uuid.UUID `json:"account_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	IsVerified    bool      `json:"is_verified"`
	EmailVerified bool      `json:"email_verified"`
	SessionRef    string    `json:"session_ref,omitempty"`
}

// NewPrincipal builds a Principal from live account state.
func NewPrincipal(account *Account, sessionRef string) *Principal {
	if account == nil {
		return nil
	}
	return &Principal{
		AccountID:     account.ID,
		Username:      account.Username,
		Email:         account.Email,
		DisplayName:   account.DisplayName,
		IsVerified:    account.IsVerified,
		EmailVerified: account.EmailVerified,
		SessionRef:    sessionRef,
	}
}

// ComparisonKey is the lowercase trimmed form used for uniqueness checks.
func ComparisonKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EmailComparisonKey is the key an email is stored and looked up under.
// Provider aliases collapse to one key, so Jane.Doe+news@Gmail.com and
// janedoe@gmail.com are the same address. Input sanitize.Email rejects
// falls back to ComparisonKey.
func EmailComparisonKey(email string) string {
	if clean := sanitize.Email(email); clean != "" {
		return ComparisonKey(clean)
	}
	return ComparisonKey(email)
}
