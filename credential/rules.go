package credential

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-identity/sanitize"
)

const (
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72
	MaxEmailLength    = 254
)

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (f FieldError) Error() string {
	return f.Field + ": " + f.Message
}

// FieldErrors is the ordered list of failures for one input.
type FieldErrors []FieldError

// Has reports whether field failed.
func (f FieldErrors) Has(field string) bool {
	for _, e := range f {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Registration is the input of a password sign-up.
type Registration struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Profile is the editable public profile input.
type Profile struct {
	DisplayName string
	Bio         string
	Website     string
}

type check struct {
	code string
	rule validation.Rule
}

type fieldRule[T any] struct {
	field  string
	value  func(T) string
	checks []check
}

var registrationRules = []fieldRule[Registration]{
	{
		field: "username",
		value: func(r Registration) string { return strings.TrimSpace(r.Username) },
		checks: []check{
			{CodeRequired, validation.Required.Error("username is required")},
			{CodeTooShort, usernameRule(CodeTooShort)},
			{CodeTooLong, usernameRule(CodeTooLong)},
			{CodeInvalidCharacters, usernameRule(CodeInvalidCharacters)},
		},
	},
	{
		field: "email",
		value: func(r Registration) string { return strings.TrimSpace(r.Email) },
		checks: []check{
			{CodeRequired, validation.Required.Error("email is required")},
			{CodeTooLong, maxRunes(MaxEmailLength, "email is too long")},
			{CodeInvalidFormat, is.Email.Error("email must be a valid email address")},
			{CodeInvalidFormat, validation.By(normalizableEmail)},
		},
	},
	{
		field: "password",
		value: func(r Registration) string { return r.Password },
		checks: []check{
			{CodeRequired, validation.Required.Error("password is required")},
			{CodeTooShort, minRunes(MinPasswordLength, fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))},
			{CodeTooLong, maxBytes(MaxPasswordLength, fmt.Sprintf("password must be at most %d bytes long", MaxPasswordLength))},
		},
	},
	{
		field:  "display_name",
		value:  func(r Registration) string { return strings.TrimSpace(r.DisplayName) },
		checks: displayNameChecks,
	},
}

var profileRules = []fieldRule[Profile]{
	{
		field:  "display_name",
		value:  func(p Profile) string { return strings.TrimSpace(p.DisplayName) },
		checks: displayNameChecks,
	},
	{
		field: "bio",
		value: func(p Profile) string { return sanitize.Text(p.Bio) },
		checks: []check{
			{CodeTooLong, predicate(sanitize.IsValidBio, fmt.Sprintf("bio must be at most %d characters long", sanitize.MaxBioLength))},
		},
	},
	{
		field: "website",
		value: func(p Profile) string { return strings.TrimSpace(p.Website) },
		checks: []check{
			{CodeInvalidFormat, predicate(func(s string) bool { return sanitize.URL(s) != "" }, "website must be an http or https URL")},
		},
	},
}

var displayNameChecks = []check{
	{CodeTooLong, maxRunes(sanitize.MaxDisplayNameLength, fmt.Sprintf("display name must be at most %d characters long", sanitize.MaxDisplayNameLength))},
	{CodeInvalidCharacters, predicate(sanitize.IsValidDisplayName, "display name contains invalid characters")},
}

// ValidateRegistration returns every field failure of r, at most one per field.
func ValidateRegistration(r Registration) FieldErrors {
	return apply(registrationRules, r)
}

// ValidateProfile returns every field failure of p, at most one per field.
func ValidateProfile(p Profile) FieldErrors {
	return apply(profileRules, p)
}

func apply[T any](rules []fieldRule[T], input T) FieldErrors {
	var out FieldErrors
	for _, fr := range rules {
		value := fr.value(input)
		for _, c := range fr.checks {
			if err := validation.Validate(value, c.rule); err != nil {
				out = append(out, FieldError{Field: fr.field, Code: c.code, Message: err.Error()})
				break
			}
		}
	}
	return out
}

func usernameRule(code string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if c := ValidateUsernameFormat(s); !c.Valid && c.Code == code {
			return errors.New(c.Reason)
		}
		return nil
	})
}

func normalizableEmail(value interface{}) error {
	s, _ := value.(string)
	if s == "" || sanitize.Email(s) != "" {
		return nil
	}
	return errors.New("email must be a valid email address")
}

func predicate(ok func(string) bool, message string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if s == "" || ok(s) {
			return nil
		}
		return errors.New(message)
	})
}

func minRunes(n int, message string) validation.Rule {
	return predicate(func(s string) bool { return utf8.RuneCountInString(s) >= n }, message)
}

func maxRunes(n int, message string) validation.Rule {
	return predicate(func(s string) bool { return utf8.RuneCountInString(s) <= n }, message)
}

func maxBytes(n int, message string) validation.Rule {
	return predicate(func(s string) bool { return len(s) <= n }, message)
}
