// Package session handles the pre-authenticated Instagram session artifact.
//
// The artifact is a JSON file of browser cookies captured out-of-band by
// `glctl login`. The bot only ever reads it.
package session

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
)

// Cookie names Instagram requires for an authenticated session.
const (
	SessionCookie = "sessionid"
	CSRFCookie    = "csrftoken"
)

// Store reads and writes the cookie artifact at a fixed path.
type Store struct {
	path string
}

// StoredCookies is the on-disk artifact format.
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// NewStore creates a cookie store at the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the artifact location.
func (s *Store) Path() string {
	return s.path
}

// Save persists cookies to disk. Only glctl calls this; the bot treats the
// artifact as read-only.
func (s *Store) Save(cookies []*network.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}

	// Expiry of the artifact is the earliest expiry among the auth cookies.
	var earliest time.Time
	for _, c := range cookies {
		if c.Name == SessionCookie || c.Name == CSRFCookie {
			exp := time.Unix(int64(c.Expires), 0)
			if earliest.IsZero() || exp.Before(earliest) {
				earliest = exp
			}
		}
	}

	stored := StoredCookies{
		Cookies:    cookies,
		CapturedAt: time.Now(),
		ExpiresAt:  earliest,
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Load retrieves the artifact from disk.
func (s *Store) Load() (*StoredCookies, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse session artifact: %w", err)
	}
	return &stored, nil
}

// IsValid reports whether the artifact exists, has not expired, and carries
// the required auth cookies.
func (s *Store) IsValid() bool {
	stored, err := s.Load()
	if err != nil {
		return false
	}
	if !stored.ExpiresAt.IsZero() && time.Now().After(stored.ExpiresAt) {
		return false
	}

	hasSession := false
	hasCSRF := false
	for _, c := range stored.Cookies {
		switch c.Name {
		case SessionCookie:
			hasSession = c.Value != ""
		case CSRFCookie:
			hasCSRF = c.Value != ""
		}
	}
	return hasSession && hasCSRF
}

// Clear removes the stored artifact.
func (s *Store) Clear() error {
	return os.Remove(s.path)
}

// InstagramCookies returns only the instagram.com cookies for use in requests.
func (s *Store) InstagramCookies() ([]*network.Cookie, error) {
	stored, err := s.Load()
	if err != nil {
		return nil, err
	}

	var out []*network.Cookie
	for _, c := range stored.Cookies {
		if strings.HasSuffix(c.Domain, "instagram.com") {
			out = append(out, c)
		}
	}
	return out, nil
}

// HTTPCookies converts the instagram.com cookies into net/http form for the
// headless client backend.
func (s *Store) HTTPCookies() ([]*http.Cookie, error) {
	cookies, err := s.InstagramCookies()
	if err != nil {
		return nil, err
	}

	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		})
	}
	return out, nil
}
