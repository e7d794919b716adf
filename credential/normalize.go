// Package credential classifies and normalizes login identifiers and checks
// username and profile input against format rules, independent of storage.
package credential

import (
	"strings"

	"github.com/goliatone/go-identity/sanitize"
)

// Kind is the classification of a login identifier.
type Kind string

const (
	KindEmail    Kind = "email"
	KindUsername Kind = "username"
)

// Identifier is a classified login identifier.
type Identifier struct {
	Kind Kind `json:"kind"`
	// Normalized is the lowercase trimmed identifier used for lookups.
	Normalized string `json:"normalized"`
	// Original is the trimmed input with its casing preserved, for audit logs.
	Original string `json:"original"`
}

// IsEmail reports whether the identifier was classified as an email.
func (i Identifier) IsEmail() bool {
	return i.Kind == KindEmail
}

// Normalize classifies identifier as an email when it has the
// local@domain.tld shape and as a username otherwise.
func Normalize(identifier string) Identifier {
	original := strings.TrimSpace(identifier)
	kind := KindUsername
	if sanitize.LooksLikeEmail(original) {
		kind = KindEmail
	}
	return Identifier{
		Kind:       kind,
		Normalized: strings.ToLower(original),
		Original:   original,
	}
}
