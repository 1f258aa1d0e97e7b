package fetch

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/tdhoang/gramlist/internal/browser"
)

// Client fetches content with a plain HTTP client carrying the session
// cookies. Much lighter than the browser backend but cannot probe the DOM.
type Client struct {
	http *resty.Client
}

// NewClient creates a headless-client backend using the given session cookies.
func NewClient(cookies []*http.Cookie) *Client {
	c := resty.New()
	c.SetTimeout(30 * time.Second)
	c.SetHeader("user-agent", browser.DefaultUserAgent)
	c.SetHeader("accept-language", "en-US,en;q=0.9")
	c.SetCookies(cookies)
	c.SetRedirectPolicy(resty.FlexibleRedirectPolicy(5))

	return &Client{http: c}
}

func (c *Client) Name() string { return BackendClient }

// JSON fetches the machine-readable representation at url. When the session
// is stale Instagram answers with a redirect to the login page instead of a
// status code, so the final URL is checked as well.
func (c *Client) JSON(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	body := resp.Body()
	// An HTML shell in place of JSON means the view isn't available for
	// this account; fall through to the markup tier.
	if ct := resp.Header().Get("content-type"); strings.Contains(ct, "text/html") {
		return nil, ErrNoContent
	}
	return body, nil
}

// Page fetches and parses the rendered page at url.
func (c *Client) Page(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, url string) (*resty.Response, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}

	if final := resp.RawResponse.Request.URL; final != nil &&
		strings.Contains(final.Path, "/accounts/login") {
		return nil, ErrLoginRedirect
	}
	if resp.StatusCode() >= 400 {
		return nil, &StatusError{Code: resp.StatusCode()}
	}
	return resp, nil
}
