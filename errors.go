package identity

import (
	"database/sql"
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity/credential"
)

const (
	TextCodeConfiguration       = "CONFIGURATION_ERROR"
	TextCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	TextCodeUserNotFound        = "USER_NOT_FOUND"
	TextCodeAccountSuspended    = "ACCOUNT_SUSPENDED"
	TextCodeSessionInvalid      = "SESSION_INVALID"
	TextCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeUsernameUnavailable = "USERNAME_UNAVAILABLE"
	TextCodeValidation          = "VALIDATION_ERROR"
	TextCodeStorageConflict     = "STORAGE_CONFLICT"
	TextCodeRecordNotFound      = "RECORD_NOT_FOUND"
)

// DefaultSuspensionMessage is reported when a suspended account has no reason on file.
const DefaultSuspensionMessage = "account suspended"

// ErrConfiguration is returned when required provider credentials or URLs are missing.
var ErrConfiguration = goerrors.New("identity provider is not configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeConfiguration).
	WithCode(http.StatusInternalServerError)

// ErrUpstreamUnavailable is returned when a token exchange or profile fetch fails.
var ErrUpstreamUnavailable = goerrors.New("identity provider unavailable, try again", goerrors.CategoryOperation).
	WithTextCode(TextCodeUpstreamUnavailable).
	WithCode(http.StatusServiceUnavailable)

// ErrUserNotFound is returned when a token subject has no live account.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountSuspended is returned for suspended accounts without a stored reason.
var ErrAccountSuspended = goerrors.New(DefaultSuspensionMessage, goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionInvalid covers both expired and absent sessions.
var ErrSessionInvalid = goerrors.New("session invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidCredentials is returned by sign-in regardless of which check failed.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a bearer token is past its expiration.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when a bearer token cannot be parsed or verified.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUsernameUnavailable is returned when a username is taken.
var ErrUsernameUnavailable = goerrors.New("username unavailable", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameUnavailable).
	WithCode(goerrors.CodeConflict)

// ErrValidation is returned for malformed identifiers, usernames or emails.
var ErrValidation = goerrors.New("validation failed", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrStorageConflict signals a uniqueness violation in the storage collaborator.
var ErrStorageConflict = goerrors.New("storage conflict", goerrors.CategoryConflict).
	WithTextCode(TextCodeStorageConflict).
	WithCode(goerrors.CodeConflict)

// ErrRecordNotFound is the storage "not found" signal.
var ErrRecordNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeRecordNotFound).
	WithCode(goerrors.CodeNotFound)

// NewAccountSuspended returns ErrAccountSuspended carrying the reason when present.
func NewAccountSuspended(reason string) error {
	if reason == "" {
		return ErrAccountSuspended
	}
	return goerrors.New(reason, goerrors.CategoryAuth).
		WithTextCode(TextCodeAccountSuspended).
		WithCode(goerrors.CodeUnauthorized)
}

// NewUsernameUnavailable returns ErrUsernameUnavailable with alternative names.
func NewUsernameUnavailable(username string, suggestions []string) error {
	err := ErrUsernameUnavailable.Clone()
	err.WithMetadata(map[string]any{
		"username":    username,
		"suggestions": suggestions,
	})
	return err
}

// NewValidationError returns ErrValidation carrying the field level failures.
func NewValidationError(fields ...credential.FieldError) error {
	err := ErrValidation.Clone()
	if len(fields) > 0 {
		err.Message = fields[0].Error()
	}
	err.WithMetadata(map[string]any{
		"fields": fields,
	})
	return err
}

// NewStorageConflict wraps a uniqueness violation reported by the storage engine.
func NewStorageConflict(source error, meta map[string]any) error {
	err := ErrStorageConflict.Clone()
	err.Source = source
	if len(meta) > 0 {
		err.WithMetadata(meta)
	}
	return err
}

// NewUpstreamUnavailable wraps a provider failure, keeping the detail only as source.
func NewUpstreamUnavailable(source error, meta map[string]any) error {
	err := ErrUpstreamUnavailable.Clone()
	err.Source = source
	if len(meta) > 0 {
		err.WithMetadata(meta)
	}
	return err
}

// NewConfigurationError lists the missing configuration keys.
func NewConfigurationError(provider string, missing ...string) error {
	err := ErrConfiguration.Clone()
	err.WithMetadata(map[string]any{
		"provider": provider,
		"missing":  missing,
	})
	return err
}

// NewRecordNotFound returns ErrRecordNotFound describing the lookup.
func NewRecordNotFound(meta map[string]any) error {
	err := ErrRecordNotFound.Clone()
	if len(meta) > 0 {
		err.WithMetadata(meta)
	}
	return err
}

// TextCode returns the text code of a taxonomy error or an empty string.
func TextCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil {
		return rich.TextCode
	}
	return ""
}

func hasTextCode(err error, code string) bool {
	return err != nil && TextCode(err) == code
}

func IsConfigurationError(err error) bool { return hasTextCode(err, TextCodeConfiguration) }

func IsUpstreamUnavailable(err error) bool { return hasTextCode(err, TextCodeUpstreamUnavailable) }

func IsUserNotFound(err error) bool { return hasTextCode(err, TextCodeUserNotFound) }

func IsAccountSuspended(err error) bool { return hasTextCode(err, TextCodeAccountSuspended) }

func IsSessionInvalid(err error) bool { return hasTextCode(err, TextCodeSessionInvalid) }

func IsInvalidCredentials(err error) bool { return hasTextCode(err, TextCodeInvalidCredentials) }

func IsUsernameUnavailable(err error) bool { return hasTextCode(err, TextCodeUsernameUnavailable) }

func IsValidationError(err error) bool { return hasTextCode(err, TextCodeValidation) }

func IsStorageConflict(err error) bool { return hasTextCode(err, TextCodeStorageConflict) }

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool { return hasTextCode(err, TextCodeTokenExpired) }

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool { return hasTextCode(err, TextCodeTokenMalformed) }

// IsNotFound reports whether err is a storage "not found" signal.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	return hasTextCode(err, TextCodeRecordNotFound)
}

// IsUnauthorized reports whether err must be mapped to an unauthorized outcome.
func IsUnauthorized(err error) bool {
	switch TextCode(err) {
	case TextCodeUserNotFound,
		TextCodeAccountSuspended,
		TextCodeSessionInvalid,
		TextCodeInvalidCredentials,
		TextCodeTokenExpired,
		TextCodeTokenMalformed:
		return true
	}
	return false
}

// Suggestions returns the alternative usernames attached to ErrUsernameUnavailable.
func Suggestions(err error) []string {
	if s, ok := metadataValue(err, "suggestions").([]string); ok {
		return s
	}
	return nil
}

// FieldErrors returns the field failures attached to ErrValidation.
func FieldErrors(err error) []credential.FieldError {
	if f, ok := metadataValue(err, "fields").([]credential.FieldError); ok {
		return f
	}
	return nil
}

func metadataValue(err error, key string) any {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich == nil || rich.Metadata == nil {
		return nil
	}
	return rich.Metadata[key]
}
