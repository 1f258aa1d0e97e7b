// Package fetch provides interchangeable backends for retrieving profile
// content: a chromedp-driven browser and a plain HTTP client. Both expose
// the same contract so the extraction fallback chain is written once.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// Backend names accepted in configuration.
const (
	BackendBrowser = "browser"
	BackendClient  = "client"
)

// ErrLoginRedirect means the source bounced the request to its login page.
// The stored session is no longer usable; callers must treat this as fatal
// for the whole batch.
var ErrLoginRedirect = errors.New("fetch: redirected to login page")

// ErrNoContent means the requested representation wasn't present (for
// example the JSON view rendered as an HTML shell). Recoverable: the next
// extraction tier should be tried.
var ErrNoContent = errors.New("fetch: requested representation not available")

// StatusError carries a non-2xx HTTP status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: unexpected status %d", e.Code)
}

// Fetcher retrieves profile content for a target URL.
type Fetcher interface {
	// Name identifies the backend ("browser" or "client").
	Name() string
	// JSON fetches the machine-readable representation at url.
	JSON(ctx context.Context, url string) ([]byte, error)
	// Page fetches the rendered page at url as a parsed document.
	Page(ctx context.Context, url string) (*goquery.Document, error)
}

// HeaderProbe is the raw result of probing a profile page header in a live
// browser: the avatar image source and the short text labels around it.
type HeaderProbe struct {
	AvatarURL string   `json:"avatarUrl"`
	Labels    []string `json:"labels"`
}

// Prober is the optional capability of browser backends to inspect the
// rendered DOM directly. Client backends don't implement it.
type Prober interface {
	ProbeHeader(ctx context.Context, url string) (HeaderProbe, error)
}
