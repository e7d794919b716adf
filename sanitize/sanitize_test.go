package sanitize_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/goliatone/go-identity/sanitize"
	"github.com/stretchr/testify/assert"
)

var corpus = []string{
	"",
	"   ",
	"john_doe",
	"  John.DOE@EXAMPLE.com  ",
	"J.o.h.n+news@GoogleMail.com",
	"first-last-tag@yahoo.com",
	"user+tag@outlook.com",
	"not an email",
	"@@@",
	"<script>alert('x')</script>",
	"Tom & Jerry / \"cartoon\"",
	"&amp; already &lt;escaped&gt;",
	"javascript:alert(1)",
	"HTTPS://Example.com/Path?q=1",
	"http://example.com",
	"ftp://example.com/file",
	"www.example.com",
	"line1\nline2\ttabbed\x00\x07\r",
	"\x1b[31mred\x1b[0m",
	"héllo wörld ✓",
	"...hidden.txt",
	"../../etc/passwd",
	"my file (1).png",
	strings.Repeat("a", 300),
	"1' OR '1'='1",
	"robert'); DROP TABLE students;--",
}

func TestSanitizersAreIdempotent(t *testing.T) {
	funcs := map[string]func(string) string{
		"String":   sanitize.String,
		"Email":    sanitize.Email,
		"Username": sanitize.Username,
		"URL":      sanitize.URL,
		"Text":     sanitize.Text,
		"Filename": sanitize.Filename,
	}

	for name, fn := range funcs {
		for _, input := range corpus {
			once := fn(input)
			assert.Equal(t, once, fn(once), "%s not idempotent for %q", name, input)
		}
	}
}

func TestSanitizerOutputShapes(t *testing.T) {
	usernameShape := regexp.MustCompile(`^[A-Za-z0-9_]*$`)

	for _, input := range corpus {
		assert.Regexp(t, usernameShape, sanitize.Username(input))

		email := sanitize.Email(input)
		assert.Equal(t, strings.ToLower(email), email)

		u := sanitize.URL(input)
		if u != "" {
			assert.True(t, strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://"), u)
		}

		assert.LessOrEqual(t, len(sanitize.Filename(input)), sanitize.MaxFilenameLength)
		assert.False(t, strings.HasPrefix(sanitize.Filename(input), "."))
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"  plain  ", "plain"},
		{"<b>hi</b>", "&lt;b&gt;hi&lt;&#x2F;b&gt;"},
		{`Tom & "Jerry"`, "Tom &amp; &quot;Jerry&quot;"},
		{"it's", "it&#x27;s"},
		{"&amp;", "&amp;"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitize.String(tt.input), tt.input)
	}
}

func TestEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  John.DOE@EXAMPLE.com  ", "john.doe@example.com"},
		{"J.o.h.n+news@GoogleMail.com", "john@gmail.com"},
		{"first-last@yahoo.com", "first@yahoo.com"},
		{"user+tag@outlook.com", "user@outlook.com"},
		{"user+tag@example.com", "user+tag@example.com"},
		{"not an email", ""},
		{"missing@tld", ""},
		{"+only@gmail.com", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitize.Email(tt.input), tt.input)
	}
}

func TestUsername(t *testing.T) {
	assert.Equal(t, "john_doe123", sanitize.Username("  john_doe123 "))
	assert.Equal(t, "johndoe", sanitize.Username("john.doe!"))
	assert.Equal(t, "", sanitize.Username("@@@"))
}

func TestURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/a?b=c", "https://example.com/a?b=c"},
		{"  http://example.com  ", "http://example.com"},
		{"HTTPS://Example.com/Path", "https://Example.com/Path"},
		{"javascript:alert(1)", ""},
		{"www.example.com", ""},
		{"ftp://example.com", ""},
		{"http://", ""},
		{"http:example.com", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitize.URL(tt.input), tt.input)
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "line1\nline2\ttabbed", sanitize.Text("  line1\nline2\ttabbed\x00\x07\r "))
	assert.Equal(t, "[31mred[0m", sanitize.Text("\x1b[31mred\x1b[0m"))
	assert.Equal(t, "héllo wörld ✓", sanitize.Text("héllo wörld ✓"))
	assert.Equal(t, "", sanitize.Text(""))
}

func TestTextUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"keeps replacement character", "\ufffd ok", "\ufffd ok"},
		{"drops invalid byte", "\xff ok", "ok"},
		{"drops truncated sequence", "caf\xc3", "caf"},
		{"mixed", "a\xffb\ufffdc", "ab\ufffdc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitize.Text(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, sanitize.Text(got))
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "hidden.txt", sanitize.Filename("...hidden.txt"))
	assert.Equal(t, "_.._etc_passwd", sanitize.Filename("../../etc/passwd"))
	assert.Equal(t, "my_file__1_.png", sanitize.Filename("my file (1).png"))
	assert.Equal(t, "r_sum_.pdf", sanitize.Filename("résumé.pdf"))
	assert.Len(t, sanitize.Filename(strings.Repeat("a", 300)), sanitize.MaxFilenameLength)
}

func TestContainsSQLInjectionSignal(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1' OR '1'='1", true},
		{"robert'); DROP TABLE students;--", true},
		{"admin' --", true},
		{"/* comment */", true},
		{"UNION select password", true},
		{"a or b = c", true},
		{"hello world", false},
		{"john_doe", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitize.ContainsSQLInjectionSignal(tt.input), tt.input)
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, sanitize.IsValidIPAddress("192.168.0.1"))
	assert.True(t, sanitize.IsValidIPAddress("::1"))
	assert.False(t, sanitize.IsValidIPAddress("999.1.1.1"))
	assert.False(t, sanitize.IsValidIPAddress("localhost"))

	assert.True(t, sanitize.IsValidDisplayName(""))
	assert.True(t, sanitize.IsValidDisplayName("John O'Neil (Jr.)!"))
	assert.False(t, sanitize.IsValidDisplayName("<script>"))
	assert.False(t, sanitize.IsValidDisplayName(strings.Repeat("a", 51)))

	assert.True(t, sanitize.IsValidBio(""))
	assert.True(t, sanitize.IsValidBio(strings.Repeat("é", 160)))
	assert.False(t, sanitize.IsValidBio(strings.Repeat("a", 161)))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "login:john@example.com", sanitize.RateLimitKey("login", "john@example.com"))
}
