package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/tdhoang/gramlist/internal/browser"
)

const (
	pageTimeout  = 60 * time.Second
	probeTimeout = 90 * time.Second
)

// Browser fetches content through a chromedp-driven Chrome instance with
// the session cookies injected before navigation. Each call runs in a fresh
// browser context; the instance itself is not safe for concurrent use
// because all calls share one authenticated session.
type Browser struct {
	headless bool
	cookies  []*network.Cookie
}

// NewBrowser creates a browser backend using the given session cookies.
func NewBrowser(headless bool, cookies []*network.Cookie) *Browser {
	return &Browser{headless: headless, cookies: cookies}
}

func (b *Browser) Name() string { return BackendBrowser }

// JSON navigates to the JSON view of a profile and reads the raw document
// text. Instagram serves the JSON inside a <pre> when the view exists.
func (b *Browser) JSON(ctx context.Context, url string) ([]byte, error) {
	var body string
	err := b.run(ctx, pageTimeout, url, chromedp.Tasks{
		chromedp.Evaluate(`document.querySelector('pre')?.textContent || ''`, &body),
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrNoContent
	}
	return []byte(body), nil
}

// Page navigates to url and parses the rendered HTML.
func (b *Browser) Page(ctx context.Context, url string) (*goquery.Document, error) {
	var html string
	err := b.run(ctx, pageTimeout, url, chromedp.Tasks{
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

// ProbeHeader loads the profile page and reads the avatar source plus the
// short text labels in the page header from the live DOM.
func (b *Browser) ProbeHeader(ctx context.Context, url string) (HeaderProbe, error) {
	// Short labels near the header image; the extraction engine filters
	// out UI action words to find the display name.
	const probeJS = `
		(function() {
			const img = document.querySelector('header img');
			const labels = [];
			document.querySelectorAll('header span[dir="auto"]').forEach(el => {
				const text = (el.textContent || '').trim();
				if (text) labels.push(text);
			});
			return { avatarUrl: img?.src || '', labels };
		})()
	`

	var probe HeaderProbe
	err := b.run(ctx, probeTimeout, url, chromedp.Tasks{
		chromedp.WaitVisible("header", chromedp.ByQuery),
		chromedp.Evaluate(probeJS, &probe),
	})
	if err != nil {
		return HeaderProbe{}, err
	}
	return probe, nil
}

// run creates a fresh browser context, injects cookies, navigates to url
// and executes tasks. A redirect to the login page surfaces as
// ErrLoginRedirect.
func (b *Browser) run(ctx context.Context, timeout time.Duration, url string, tasks chromedp.Tasks) error {
	opts := browser.Options(b.headless)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, timeout)
	defer timeoutCancel()

	if err := b.injectCookies(browserCtx); err != nil {
		return fmt.Errorf("inject cookies: %w", err)
	}

	var location string
	nav := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.Location(&location),
	}
	if err := chromedp.Run(browserCtx, nav); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}
	if strings.Contains(location, "/accounts/login") {
		return ErrLoginRedirect
	}

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return fmt.Errorf("read %s: %w", url, err)
	}
	return nil
}

// injectCookies sets session cookies in the browser context before navigation.
func (b *Browser) injectCookies(ctx context.Context) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range b.cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)
				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}
