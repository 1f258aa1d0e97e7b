package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{SentinelNotFound, SentinelPrivate, SentinelRateLimited, SentinelScrapeError} {
		require.True(t, IsSentinel(s), s)
	}
	require.False(t, IsSentinel("Alice Wonder"))
	require.False(t, IsSentinel(""))
}

func TestRecordLifecyclePredicates(t *testing.T) {
	added := Record{URL: "https://www.instagram.com/alice/", Username: "alice", RowIndex: 2}
	require.True(t, added.NeedsEnrichment())
	require.False(t, added.Enriched())
	require.False(t, added.Rated())

	enriched := added
	enriched.FullName = "Alice Wonder"
	enriched.AvatarURL = "pic"
	require.False(t, enriched.NeedsEnrichment())
	require.True(t, enriched.Enriched())

	// A sentinel fills the cell but is not real data; it still blocks
	// re-scraping so failed items aren't retried forever.
	failed := added
	failed.FullName = SentinelPrivate
	require.False(t, failed.NeedsEnrichment())
	require.False(t, failed.Enriched())

	rated := enriched
	rated.Rating = 4
	require.True(t, rated.Rated())
}

func TestDisplayTitle(t *testing.T) {
	require.Equal(t, "Alice Wonder", Record{Username: "alice", FullName: "Alice Wonder"}.DisplayTitle())
	require.Equal(t, "alice", Record{Username: "alice"}.DisplayTitle())
	require.Equal(t, "alice", Record{Username: "alice", FullName: SentinelNotFound}.DisplayTitle())
}

func TestFindByHandle(t *testing.T) {
	records := []Record{
		{Username: "alice", RowIndex: 2},
		{Username: "bob", RowIndex: 3},
	}

	rec, ok := FindByHandle(records, "ALICE")
	require.True(t, ok)
	require.Equal(t, 2, rec.RowIndex)

	_, ok = FindByHandle(records, "carol")
	require.False(t, ok)
}

func TestParseRating(t *testing.T) {
	require.Equal(t, 4, ParseRating("4"))
	require.Equal(t, 5, ParseRating(" 5 "))
	require.Zero(t, ParseRating(""))
	require.Zero(t, ParseRating("6"))
	require.Zero(t, ParseRating("0"))
	require.Zero(t, ParseRating("great"))
}

func TestColumnLetter(t *testing.T) {
	testCases := []struct {
		idx  int
		want string
	}{
		{0, "A"},
		{3, "D"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.want, columnLetter(tc.idx))
	}
}
