package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/tdhoang/gramlist/internal/browser"
)

// Login opens a visible browser for the operator to log in to Instagram,
// then captures the session cookies into the store. This is the one-time
// bootstrap; the bot itself never writes the artifact.
func Login(ctx context.Context, store *Store) error {
	opts := browser.Options(false)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	err := chromedp.Run(browserCtx,
		chromedp.Navigate("https://www.instagram.com/accounts/login/"),
	)
	if err != nil {
		return fmt.Errorf("navigate to login page: %w", err)
	}

	if err := waitForLogin(browserCtx); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	cookies, err := extractCookies(browserCtx)
	if err != nil {
		return fmt.Errorf("extract cookies: %w", err)
	}

	if err := store.Save(cookies); err != nil {
		return fmt.Errorf("save session artifact: %w", err)
	}
	return nil
}

// waitForLogin polls until the operator has logged in, detected by leaving
// the login page with a populated sessionid cookie.
func waitForLogin(ctx context.Context) error {
	timeout := time.After(5 * time.Minute)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-timeout:
			return fmt.Errorf("login timeout exceeded")
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var url string
			if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
				continue
			}
			if strings.Contains(url, "/accounts/login") {
				continue
			}

			cookies, err := extractCookies(ctx)
			if err != nil {
				continue
			}
			for _, c := range cookies {
				if c.Name == SessionCookie && c.Value != "" {
					return nil
				}
			}
		}
	}
}

func extractCookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie

	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
	)
	return cookies, err
}
