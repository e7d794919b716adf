package sanitize

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxDisplayNameLength is the longest accepted display name, in characters.
	MaxDisplayNameLength = 50
	// MaxBioLength is the longest accepted bio, in characters.
	MaxBioLength = 160
)

var displayNamePattern = regexp.MustCompile(`^[A-Za-z0-9\s\-_.,'!?()]+$`)

// IsValidDisplayName accepts empty names and names up to
// MaxDisplayNameLength made of letters, digits, whitespace and - _ . , ' ! ? ( ).
func IsValidDisplayName(s string) bool {
	if s == "" {
		return true
	}
	if utf8.RuneCountInString(s) > MaxDisplayNameLength {
		return false
	}
	return displayNamePattern.MatchString(s)
}

// IsValidBio accepts empty bios and bios up to MaxBioLength characters.
func IsValidBio(s string) bool {
	return utf8.RuneCountInString(s) <= MaxBioLength
}

// sqlSignals are heuristics only. Storage access must stay parametrized
// whatever these report.
var sqlSignals = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|EXEC|EXECUTE|UNION|TRUNCATE|SCRIPT)\b`),
	regexp.MustCompile(`(--|/\*|\*/|;)`),
	regexp.MustCompile(`(?i)\b(OR|AND)\b[^=]*=`),
	regexp.MustCompile(`'[^']*'`),
}

// ContainsSQLInjectionSignal reports whether s contains SQL keywords,
// comment tokens, OR/AND equality patterns or quoted literals.
func ContainsSQLInjectionSignal(s string) bool {
	for _, re := range sqlSignals {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
