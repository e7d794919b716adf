// Package sanitize holds pure transforms that clean untrusted string input
// before it reaches business logic or storage.
//
// Every transform is total and idempotent: applying it twice yields the same
// result as applying it once.
package sanitize

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFilenameLength is the longest filename Filename returns.
const MaxFilenameLength = 255

var htmlEntities = []struct {
	raw    byte
	entity string
}{
	{'&', "&amp;"},
	{'<', "&lt;"},
	{'>', "&gt;"},
	{'"', "&quot;"},
	{'\'', "&#x27;"},
	{'/', "&#x2F;"},
}

// String trims s and escapes & < > " ' and /. Ampersands that already open
// one of the produced entities are left alone so escaping is not stacked.
func String(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '&' && startsEntity(s[i:]) {
			b.WriteByte(c)
			continue
		}
		if entity, ok := entityFor(c); ok {
			b.WriteString(entity)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func entityFor(c byte) (string, bool) {
	for _, e := range htmlEntities {
		if e.raw == c {
			return e.entity, true
		}
	}
	return "", false
}

func startsEntity(s string) bool {
	for _, e := range htmlEntities {
		if strings.HasPrefix(s, e.entity) {
			return true
		}
	}
	return false
}

var usernameDisallowed = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Username trims s and drops every character outside [A-Za-z0-9_].
func Username(s string) string {
	return usernameDisallowed.ReplaceAllString(strings.TrimSpace(s), "")
}

// URL returns s when it is an absolute http or https URL with a host, with
// the scheme lowercased. Anything else yields an empty string.
func URL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" || u.Opaque != "" {
		return ""
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}

	rest := s[len(u.Scheme):]
	if !strings.HasPrefix(rest, "://") {
		return ""
	}
	return scheme + rest
}

// Text drops invalid UTF-8 and control characters except newline and
// tab, then trims.
func Text(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
	return strings.TrimSpace(cleaned)
}

// Filename replaces characters outside [A-Za-z0-9._-] with an underscore,
// strips leading dots and truncates to MaxFilenameLength.
func Filename(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf && isFilenameByte(byte(r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}

	out := strings.TrimLeft(b.String(), ".")
	if len(out) > MaxFilenameLength {
		out = out[:MaxFilenameLength]
	}
	return out
}

func isFilenameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.', c == '_', c == '-':
		return true
	}
	return false
}

// IsValidIPAddress reports whether s is a textual IPv4 or IPv6 address.
func IsValidIPAddress(s string) bool {
	return net.ParseIP(strings.TrimSpace(s)) != nil
}

// RateLimitKey formats the key consumed by an external limiter.
func RateLimitKey(prefix, identifier string) string {
	return fmt.Sprintf("%s:%s", prefix, identifier)
}
