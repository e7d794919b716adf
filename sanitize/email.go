package sanitize

import (
	"regexp"
	"strings"
)

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// providerRule describes how a mailbox provider treats the local part.
type providerRule struct {
	removeDots   bool
	subaddress   string
	canonicalize string
}

var providerRules = map[string]providerRule{
	"gmail.com":      {removeDots: true, subaddress: "+", canonicalize: "gmail.com"},
	"googlemail.com": {removeDots: true, subaddress: "+", canonicalize: "gmail.com"},
	"outlook.com":    {subaddress: "+"},
	"hotmail.com":    {subaddress: "+"},
	"live.com":       {subaddress: "+"},
	"msn.com":        {subaddress: "+"},
	"icloud.com":     {subaddress: "+"},
	"me.com":         {subaddress: "+"},
	"mac.com":        {subaddress: "+"},
	"yahoo.com":      {subaddress: "-"},
	"ymail.com":      {subaddress: "-"},
	"rocketmail.com": {subaddress: "-"},
}

// Email trims and lowercases s and applies the mailbox provider
// normalization used for comparison keys: Gmail ignores dots and treats
// googlemail.com as gmail.com, and known providers drop subaddresses.
// An input that is not email shaped yields an empty string.
func Email(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !emailShape.MatchString(s) {
		return ""
	}

	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]

	if rule, ok := providerRules[domain]; ok {
		if rule.subaddress != "" {
			if i := strings.Index(local, rule.subaddress); i >= 0 {
				local = local[:i]
			}
		}
		if rule.removeDots {
			local = strings.ReplaceAll(local, ".", "")
		}
		if rule.canonicalize != "" {
			domain = rule.canonicalize
		}
	}

	out := local + "@" + domain
	if !emailShape.MatchString(out) {
		return ""
	}
	return out
}

// LooksLikeEmail reports whether s has the simple local@domain.tld shape
// with no embedded whitespace.
func LooksLikeEmail(s string) bool {
	return emailShape.MatchString(strings.TrimSpace(s))
}
