// Package handle derives the canonical Instagram username from a profile URL.
package handle

import (
	"regexp"
	"strings"
)

// urlPattern matches an instagram.com profile URL and captures the first
// path segment. Dot rules (no leading/trailing/consecutive dots) need
// lookahead in PCRE, which RE2 doesn't have, so they are validated
// separately in valid().
var urlPattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.)?instagram\.com/([A-Za-z0-9_.]{1,30})(?:[/?#]|$)`)

// reserved path segments that look like usernames but aren't profiles.
var reserved = map[string]bool{
	"p":        true,
	"reel":     true,
	"reels":    true,
	"tv":       true,
	"stories":  true,
	"explore":  true,
	"accounts": true,
	"about":    true,
	"direct":   true,
}

// FromURL extracts the username from an Instagram profile URL and returns
// it lowercased. The second return is false for anything that isn't a
// well-formed profile URL. Trailing slashes and query strings don't affect
// the result.
func FromURL(url string) (string, bool) {
	m := urlPattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", false
	}
	h := m[1]
	if !valid(h) || reserved[strings.ToLower(h)] {
		return "", false
	}
	return Normalize(h), true
}

// Normalize lowercases a handle. Handles are compared case-insensitively
// everywhere, so the lowercase form is the canonical key.
func Normalize(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// ProfileURL returns the canonical profile URL for a handle.
func ProfileURL(h string) string {
	return "https://www.instagram.com/" + Normalize(h) + "/"
}

func valid(h string) bool {
	if h == "" || len(h) > 30 {
		return false
	}
	if strings.HasPrefix(h, ".") || strings.HasSuffix(h, ".") {
		return false
	}
	return !strings.Contains(h, "..")
}
