package social

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderNotFound  = "social_provider_not_found"
	TextCodeInvalidState      = "social_invalid_state"
	TextCodeStateExpired      = "social_state_expired"
	TextCodeEmailNotVerified  = "social_email_not_verified"
	TextCodeProfileIncomplete = "social_profile_incomplete"
)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("social provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrEmailNotVerified is returned when linking to an existing account with
// an email the provider has not verified.
var ErrEmailNotVerified = errors.New("email not verified", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)

// ErrProfileIncomplete is returned when a profile lacks the provider identity.
var ErrProfileIncomplete = errors.New("provider profile is missing the user id", errors.CategoryBadInput).
	WithTextCode(TextCodeProfileIncomplete).
	WithCode(errors.CodeBadRequest)

// IsEmailNotVerified reports whether err is ErrEmailNotVerified.
func IsEmailNotVerified(err error) bool {
	var rich *errors.Error
	return errors.As(err, &rich) && rich != nil && rich.TextCode == TextCodeEmailNotVerified
}
