package handle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromURL(t *testing.T) {
	testCases := []struct {
		url  string
		want string
		ok   bool
	}{
		{url: "https://www.instagram.com/alice", want: "alice", ok: true},
		{url: "https://www.instagram.com/alice/", want: "alice", ok: true},
		{url: "https://instagram.com/alice?igsh=abc123", want: "alice", ok: true},
		{url: "http://www.instagram.com/Alice.B/", want: "alice.b", ok: true},
		{url: "instagram.com/a_l_i_c_e", want: "a_l_i_c_e", ok: true},
		{url: "  https://www.instagram.com/alice/  ", want: "alice", ok: true},
		{url: "https://www.instagram.com/alice/reel/xyz", want: "alice", ok: true},
		{url: "https://www.instagram.com/.alice", ok: false},
		{url: "https://www.instagram.com/alice.", ok: false},
		{url: "https://www.instagram.com/ali..ce", ok: false},
		{url: "https://www.instagram.com/p/Cxyz123", ok: false},
		{url: "https://www.instagram.com/reel/Cxyz123", ok: false},
		{url: "https://www.instagram.com/", ok: false},
		{url: "https://example.com/alice", ok: false},
		{url: "not a url", ok: false},
		{url: "", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			got, ok := FromURL(tc.url)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

// Handle derivation must be stable across URL spelling variants so dedup
// can rely on it as a key.
func TestFromURLDeterministic(t *testing.T) {
	variants := []string{
		"https://www.instagram.com/alice",
		"https://www.instagram.com/alice/",
		"https://www.instagram.com/alice?hl=en",
		"https://www.instagram.com/ALICE/",
		"instagram.com/alice",
	}
	for _, v := range variants {
		got, ok := FromURL(v)
		require.True(t, ok, v)
		require.Equal(t, "alice", got, v)
	}
}

func TestProfileURL(t *testing.T) {
	require.Equal(t, "https://www.instagram.com/alice/", ProfileURL("Alice"))
}
