package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/tdhoang/gramlist/internal/fetch"
)

// fakeFetcher is a scripted backend without DOM-probe support, like the
// headless client.
type fakeFetcher struct {
	jsonBody []byte
	jsonErr  error
	pageHTML string
	pageErr  error

	jsonCalls int
	pageCalls int
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) JSON(ctx context.Context, url string) ([]byte, error) {
	f.jsonCalls++
	return f.jsonBody, f.jsonErr
}

func (f *fakeFetcher) Page(ctx context.Context, url string) (*goquery.Document, error) {
	f.pageCalls++
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return goquery.NewDocumentFromReader(strings.NewReader(f.pageHTML))
}

// fakeProber adds scripted DOM-probe support, like the browser backend.
type fakeProber struct {
	fakeFetcher
	probe      fetch.HeaderProbe
	probeErr   error
	probeCalls int
}

func (f *fakeProber) ProbeHeader(ctx context.Context, url string) (fetch.HeaderProbe, error) {
	f.probeCalls++
	return f.probe, f.probeErr
}

const profileJSON = `{
	"graphql": {"user": {
		"username": "alice",
		"full_name": "Alice Wonder",
		"is_private": false,
		"profile_pic_url_hd": "https://cdn.example.com/alice_hd.jpg",
		"profile_pic_url": "https://cdn.example.com/alice.jpg"
	}}
}`

func TestJSONTierSuccessSkipsLaterTiers(t *testing.T) {
	f := &fakeProber{fakeFetcher: fakeFetcher{jsonBody: []byte(profileJSON)}}
	engine := NewEngine(f)

	p, err := engine.Extract(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice Wonder", p.DisplayName)
	require.Equal(t, "https://cdn.example.com/alice_hd.jpg", p.AvatarURL)
	require.Equal(t, 1, f.jsonCalls)
	require.Zero(t, f.pageCalls)
	require.Zero(t, f.probeCalls)
}

func TestJSONTierEmptyFullNameFallsBackToUsername(t *testing.T) {
	body := `{"graphql":{"user":{"username":"alice","full_name":"","profile_pic_url":"x"}}}`
	engine := NewEngine(&fakeFetcher{jsonBody: []byte(body)})

	p, err := engine.Extract(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", p.DisplayName)
}

func TestPrivateAccountIsTerminal(t *testing.T) {
	body := `{"graphql":{"user":{"username":"alice","full_name":"Alice","is_private":true,"followed_by_viewer":false}}}`
	f := &fakeProber{fakeFetcher: fakeFetcher{jsonBody: []byte(body)}}
	engine := NewEngine(f)

	_, err := engine.Extract(context.Background(), "alice")
	require.ErrorIs(t, err, ErrPrivate)
	require.Zero(t, f.pageCalls, "private must not fall through to the markup tier")
}

func TestPrivateButFollowedIsAccessible(t *testing.T) {
	body := `{"graphql":{"user":{"username":"alice","full_name":"Alice","is_private":true,"followed_by_viewer":true,"profile_pic_url":"pic"}}}`
	engine := NewEngine(&fakeFetcher{jsonBody: []byte(body)})

	p, err := engine.Extract(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice", p.DisplayName)
}

func TestMarkupTierParsesOGTags(t *testing.T) {
	f := &fakeFetcher{
		jsonErr: fetch.ErrNoContent,
		pageHTML: `<html><head>
			<meta property="og:title" content="Alice Wonder (@alice) &#8226; Instagram photos and videos"/>
			<meta property="og:image" content="https://cdn.example.com/alice.jpg"/>
		</head><body></body></html>`,
	}
	engine := NewEngine(f)

	p, err := engine.Extract(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice Wonder", p.DisplayName)
	require.Equal(t, "https://cdn.example.com/alice.jpg", p.AvatarURL)
	require.Equal(t, 1, f.jsonCalls)
	require.Equal(t, 1, f.pageCalls)
}

func TestMarkupTierHandleOnlyTitle(t *testing.T) {
	f := &fakeFetcher{
		jsonErr: fetch.ErrNoContent,
		pageHTML: `<html><head>
			<meta property="og:title" content="(@alice)"/>
			<meta property="og:image" content="pic"/>
		</head></html>`,
	}
	engine := NewEngine(f)

	p, err := engine.Extract(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", p.DisplayName)
}

func TestMarkupTierNotFoundMarker(t *testing.T) {
	f := &fakeFetcher{
		jsonErr:  fetch.ErrNoContent,
		pageHTML: `<html><body>Sorry, this page isn't available.</body></html>`,
	}
	engine := NewEngine(f)

	_, err := engine.Extract(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkupTierPrivateMarker(t *testing.T) {
	f := &fakeFetcher{
		jsonErr:  fetch.ErrNoContent,
		pageHTML: `<html><body>This account is private</body></html>`,
	}
	engine := NewEngine(f)

	_, err := engine.Extract(context.Background(), "alice")
	require.ErrorIs(t, err, ErrPrivate)
}

func TestStatusCodesClassified(t *testing.T) {
	testCases := []struct {
		code int
		want error
	}{
		{code: 404, want: ErrNotFound},
		{code: 429, want: ErrRateLimited},
	}
	for _, tc := range testCases {
		f := &fakeFetcher{
			jsonErr: &fetch.StatusError{Code: tc.code},
			pageErr: &fetch.StatusError{Code: tc.code},
		}
		_, err := NewEngine(f).Extract(context.Background(), "alice")
		require.ErrorIs(t, err, tc.want)
	}
}

func TestLoginRedirectIsSessionExpired(t *testing.T) {
	f := &fakeProber{fakeFetcher: fakeFetcher{jsonErr: fetch.ErrLoginRedirect}}
	engine := NewEngine(f)

	_, err := engine.Extract(context.Background(), "alice")
	require.ErrorIs(t, err, ErrSessionExpired)
	require.Zero(t, f.pageCalls, "session expiry must short-circuit the chain")
	require.Zero(t, f.probeCalls)
}

func TestProbeTierSelectsFirstRealLabel(t *testing.T) {
	f := &fakeProber{
		fakeFetcher: fakeFetcher{
			jsonErr: fetch.ErrNoContent,
			pageErr: errors.New("render timeout"),
		},
		probe: fetch.HeaderProbe{
			AvatarURL: "https://cdn.example.com/alice.jpg",
			Labels:    []string{"Follow", "1,024", "posts", "a", "Alice Wonder", "Message"},
		},
	}
	engine := NewEngine(f)

	p, err := engine.Extract(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "Alice Wonder", p.DisplayName)
	require.Equal(t, "https://cdn.example.com/alice.jpg", p.AvatarURL)
	require.Equal(t, 1, f.probeCalls)
}

func TestProbeTierDefaultsToHandle(t *testing.T) {
	f := &fakeProber{
		fakeFetcher: fakeFetcher{
			jsonErr: fetch.ErrNoContent,
			pageErr: errors.New("render timeout"),
		},
		probe: fetch.HeaderProbe{
			AvatarURL: "pic",
			Labels:    []string{"Follow", "42", "7"},
		},
	}
	engine := NewEngine(f)

	p, err := engine.Extract(context.Background(), "Alice")
	require.NoError(t, err)
	require.Equal(t, "alice", p.DisplayName)
}

func TestClientBackendWithoutProbeStaysRecoverable(t *testing.T) {
	f := &fakeFetcher{
		jsonErr: fetch.ErrNoContent,
		pageErr: errors.New("connection reset"),
	}
	_, err := NewEngine(f).Extract(context.Background(), "alice")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrNotFound) || errors.Is(err, ErrPrivate) ||
		errors.Is(err, ErrRateLimited) || errors.Is(err, ErrSessionExpired))
}
