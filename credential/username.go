package credential

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goliatone/go-identity/sanitize"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 15
	// MaxSuggestions caps GenerateUsernameSuggestions output.
	MaxSuggestions = 5
)

const (
	CodeTooShort          = "too_short"
	CodeTooLong           = "too_long"
	CodeInvalidCharacters = "invalid_characters"
	CodeRequired          = "required"
	CodeInvalidFormat     = "invalid_format"
)

var usernameCharset = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// UsernameCheck is the outcome of ValidateUsernameFormat.
type UsernameCheck struct {
	Valid  bool   `json:"valid"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ValidateUsernameFormat checks length and charset of the trimmed username.
func ValidateUsernameFormat(s string) UsernameCheck {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)

	switch {
	case n < MinUsernameLength:
		return UsernameCheck{
			Code:   CodeTooShort,
			Reason: fmt.Sprintf("username must be at least %d characters long", MinUsernameLength),
		}
	case n > MaxUsernameLength:
		return UsernameCheck{
			Code:   CodeTooLong,
			Reason: fmt.Sprintf("username must be at most %d characters long", MaxUsernameLength),
		}
	case !usernameCharset.MatchString(s):
		return UsernameCheck{
			Code:   CodeInvalidCharacters,
			Reason: "username can only contain letters, numbers and underscores",
		}
	}

	return UsernameCheck{Valid: true}
}

// Suggester generates alternative usernames. The zero value uses the
// current year and math/rand.
type Suggester struct {
	Now    func() time.Time
	Random func(n int) int
}

// GenerateUsernameSuggestions uses a default Suggester.
func GenerateUsernameSuggestions(base string) []string {
	return Suggester{}.Suggest(base)
}

// Suggest returns up to MaxSuggestions alternatives for base: base1, base2,
// base_year and then either base_user and the_base, or base plus a random
// number between 1 and 999 when base already contains an underscore.
func (s Suggester) Suggest(base string) []string {
	base = sanitize.Username(base)
	if base == "" {
		base = "user"
	}

	now := s.Now
	if now == nil {
		now = time.Now
	}
	random := s.Random
	if random == nil {
		random = rand.IntN
	}

	suggestions := []string{
		base + "1",
		base + "2",
		fmt.Sprintf("%s_%d", base, now().Year()),
	}

	if strings.Contains(base, "_") {
		suggestions = append(suggestions, fmt.Sprintf("%s%d", base, random(999)+1))
	} else {
		suggestions = append(suggestions, base+"_user", "the_"+base)
	}

	return dedupe(suggestions, MaxSuggestions)
}

func dedupe(values []string, limit int) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
