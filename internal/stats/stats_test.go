package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdhoang/gramlist/internal/store"
)

func records() []store.Record {
	return []store.Record{
		{Username: "alice", FullName: "Alice", Rating: 5},
		{Username: "bob", FullName: "Bob", Rating: 3},
		{Username: "carol", FullName: store.SentinelPrivate},
		{Username: "dave", Rating: 3},
		{Username: "eve"},
	}
}

func TestCompute(t *testing.T) {
	s := Compute(records())
	require.Equal(t, 5, s.Total)
	require.Equal(t, 2, s.Enriched)
	require.Equal(t, 3, s.Rated)
	require.Equal(t, 1, s.PerRating[5])
	require.Equal(t, 2, s.PerRating[3])
	require.Zero(t, s.PerRating[1])
	require.InDelta(t, 11.0/3.0, s.Average, 0.001)
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)
	require.Zero(t, s.Total)
	require.Zero(t, s.Average)
}

func TestRandomFiltersByRating(t *testing.T) {
	for i := 0; i < 20; i++ {
		rec, ok := Random(records(), 3)
		require.True(t, ok)
		require.Equal(t, 3, rec.Rating)
	}
}

func TestRandomAny(t *testing.T) {
	rec, ok := Random(records(), 0)
	require.True(t, ok)
	require.NotEmpty(t, rec.Username)
}

func TestRandomNoMatch(t *testing.T) {
	_, ok := Random(records(), 1)
	require.False(t, ok)

	_, ok = Random(nil, 0)
	require.False(t, ok)
}
