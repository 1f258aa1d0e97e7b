// Package extract turns fetched profile content into a display name and
// avatar URL, trying an ordered chain of strategies and classifying the
// failures that end an item or an entire batch.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/tdhoang/gramlist/internal/fetch"
	"github.com/tdhoang/gramlist/internal/handle"
)

// Terminal failure kinds. The first three end a single item; session expiry
// ends the whole batch because every later item would fail the same way.
var (
	ErrNotFound       = errors.New("profile not found")
	ErrPrivate        = errors.New("account is private")
	ErrRateLimited    = errors.New("rate limited")
	ErrSessionExpired = errors.New("session expired")
)

// Profile is a successfully extracted name/avatar pair. AvatarURL may be
// empty; DisplayName never is (it falls back to the handle).
type Profile struct {
	DisplayName string
	AvatarURL   string
}

// Engine runs the extraction fallback chain against one fetcher backend.
type Engine struct {
	fetcher fetch.Fetcher
}

// NewEngine creates an extraction engine on top of a fetcher backend.
func NewEngine(f fetch.Fetcher) *Engine {
	return &Engine{fetcher: f}
}

// Extract resolves the display name and avatar for a handle.
//
// Tiers, in order, each tried only when the previous failed recoverably:
//  1. the JSON profile view
//  2. og: metadata on the rendered page
//  3. a live DOM probe of the page header (browser backends only)
//
// Terminal failures (ErrNotFound, ErrPrivate, ErrRateLimited,
// ErrSessionExpired) never fall through.
func (e *Engine) Extract(ctx context.Context, h string) (Profile, error) {
	h = handle.Normalize(h)
	profileURL := handle.ProfileURL(h)

	p, err := e.fromJSON(ctx, profileURL, h)
	if err == nil {
		return p, nil
	}
	if terminal(err) {
		return Profile{}, err
	}

	p, err = e.fromMarkup(ctx, profileURL, h)
	if err == nil {
		return p, nil
	}
	if terminal(err) {
		return Profile{}, err
	}

	if prober, ok := e.fetcher.(fetch.Prober); ok {
		p, probeErr := e.fromProbe(ctx, prober, profileURL, h)
		if probeErr == nil {
			return p, nil
		}
		if terminal(probeErr) {
			return Profile{}, probeErr
		}
		err = probeErr
	}

	return Profile{}, fmt.Errorf("extract %s: %w", h, err)
}

// jsonProfile is the shape of the JSON profile view.
type jsonProfile struct {
	Graphql struct {
		User struct {
			Username         string `json:"username"`
			FullName         string `json:"full_name"`
			IsPrivate        bool   `json:"is_private"`
			FollowedByViewer bool   `json:"followed_by_viewer"`
			ProfilePicURLHD  string `json:"profile_pic_url_hd"`
			ProfilePicURL    string `json:"profile_pic_url"`
		} `json:"user"`
	} `json:"graphql"`
}

// fromJSON fetches the machine-readable profile view.
func (e *Engine) fromJSON(ctx context.Context, profileURL, h string) (Profile, error) {
	data, err := e.fetcher.JSON(ctx, profileURL+"?__a=1&__d=dis")
	if err != nil {
		return Profile{}, classifyFetchErr(err)
	}

	var payload jsonProfile
	if err := json.Unmarshal(data, &payload); err != nil {
		return Profile{}, fmt.Errorf("malformed profile json: %w", err)
	}

	user := payload.Graphql.User
	if user.Username == "" {
		return Profile{}, errors.New("profile json missing user")
	}
	if user.IsPrivate && !user.FollowedByViewer {
		return Profile{}, ErrPrivate
	}

	name := strings.TrimSpace(user.FullName)
	if name == "" {
		name = user.Username
	}
	avatar := user.ProfilePicURLHD
	if avatar == "" {
		avatar = user.ProfilePicURL
	}
	return Profile{DisplayName: name, AvatarURL: avatar}, nil
}

// ogTitlePattern splits "Full Name (@handle) • Instagram photos and videos".
var ogTitlePattern = regexp.MustCompile(`^(.*?)\s*\(@([A-Za-z0-9_.]+)\)`)

// Markers Instagram renders into the page body for terminal conditions.
const (
	notFoundMarker    = "Sorry, this page isn't available"
	privateMarker     = "This account is private"
	rateLimitedMarker = "Please wait a few minutes"
)

// fromMarkup fetches the rendered page and reads the og: metadata tags.
func (e *Engine) fromMarkup(ctx context.Context, profileURL, h string) (Profile, error) {
	doc, err := e.fetcher.Page(ctx, profileURL)
	if err != nil {
		return Profile{}, classifyFetchErr(err)
	}

	if err := classifyPage(doc); err != nil {
		return Profile{}, err
	}

	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	avatar, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
	if title == "" && avatar == "" {
		return Profile{}, errors.New("page has no profile metadata")
	}

	name := h
	if m := ogTitlePattern.FindStringSubmatch(title); m != nil {
		if full := strings.TrimSpace(m[1]); full != "" {
			name = full
		} else if m[2] != "" {
			name = m[2]
		}
	}
	return Profile{DisplayName: name, AvatarURL: avatar}, nil
}

// uiWords are header labels that are actions, not names.
var uiWords = map[string]bool{
	"follow":    true,
	"message":   true,
	"following": true,
	"followers": true,
	"posts":     true,
}

// fromProbe inspects the live page header. The display name is the first
// label that isn't a UI action word, a bare number, or a single character;
// the handle stands in when no label qualifies.
func (e *Engine) fromProbe(ctx context.Context, prober fetch.Prober, profileURL, h string) (Profile, error) {
	probe, err := prober.ProbeHeader(ctx, profileURL)
	if err != nil {
		return Profile{}, classifyFetchErr(err)
	}

	name := h
	for _, label := range probe.Labels {
		label = strings.TrimSpace(label)
		if utf8.RuneCountInString(label) <= 1 {
			continue
		}
		if uiWords[strings.ToLower(label)] {
			continue
		}
		if numeric(label) {
			continue
		}
		name = label
		break
	}
	return Profile{DisplayName: name, AvatarURL: probe.AvatarURL}, nil
}

// classifyPage maps the terminal markers Instagram renders into the body.
func classifyPage(doc *goquery.Document) error {
	body := doc.Text()
	switch {
	case strings.Contains(body, notFoundMarker):
		return ErrNotFound
	case strings.Contains(body, privateMarker):
		return ErrPrivate
	case strings.Contains(body, rateLimitedMarker):
		return ErrRateLimited
	}
	return nil
}

// classifyFetchErr maps transport-level failures onto the terminal kinds.
// Anything unrecognized stays recoverable so the next tier gets a chance.
func classifyFetchErr(err error) error {
	if errors.Is(err, fetch.ErrLoginRedirect) {
		return ErrSessionExpired
	}

	var status *fetch.StatusError
	if errors.As(err, &status) {
		switch status.Code {
		case 404:
			return ErrNotFound
		case 429:
			return ErrRateLimited
		}
	}
	return err
}

func terminal(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPrivate) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrSessionExpired)
}

// numeric reports whether a label is purely a count, like "1,024" or "8.5".
func numeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != ',' && r != '.' {
			return false
		}
	}
	return true
}
