package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
)

func testCookies(expires time.Time) []*network.Cookie {
	return []*network.Cookie{
		{Name: SessionCookie, Value: "abc123", Domain: ".instagram.com", Path: "/", Expires: float64(expires.Unix()), Secure: true},
		{Name: CSRFCookie, Value: "tok", Domain: ".instagram.com", Path: "/", Expires: float64(expires.Unix())},
		{Name: "other", Value: "x", Domain: ".example.com", Path: "/"},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, store.Save(testCookies(time.Now().Add(24*time.Hour))))

	stored, err := store.Load()
	require.NoError(t, err)
	require.Len(t, stored.Cookies, 3)
	require.False(t, stored.CapturedAt.IsZero())
	require.True(t, store.IsValid())
}

func TestIsValidMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.json"))
	require.False(t, store.IsValid())
}

func TestIsValidExpired(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(testCookies(time.Now().Add(-time.Hour))))
	require.False(t, store.IsValid())
}

func TestIsValidMissingAuthCookie(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save([]*network.Cookie{
		{Name: CSRFCookie, Value: "tok", Domain: ".instagram.com"},
	}))
	require.False(t, store.IsValid())
}

func TestInstagramCookiesFiltersDomains(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(testCookies(time.Now().Add(24*time.Hour))))

	ig, err := store.InstagramCookies()
	require.NoError(t, err)
	require.Len(t, ig, 2)
	for _, c := range ig {
		require.Contains(t, c.Domain, "instagram.com")
	}

	httpCookies, err := store.HTTPCookies()
	require.NoError(t, err)
	require.Len(t, httpCookies, 2)
	require.Equal(t, SessionCookie, httpCookies[0].Name)
	require.Equal(t, "abc123", httpCookies[0].Value)
}

func TestClear(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, store.Save(testCookies(time.Now().Add(24*time.Hour))))
	require.NoError(t, store.Clear())
	require.False(t, store.IsValid())
}
