// Package stats computes summary figures over the catalogue.
package stats

import (
	random "github.com/mazen160/go-random"

	"github.com/tdhoang/gramlist/internal/store"
)

// Summary is a point-in-time breakdown of the catalogue.
type Summary struct {
	Total    int
	Enriched int
	Rated    int
	// PerRating counts records by rating value, indexed 1..5.
	PerRating [6]int
	Average   float64
}

// Compute builds a summary from a fresh record read.
func Compute(records []store.Record) Summary {
	var s Summary
	s.Total = len(records)

	sum := 0
	for _, r := range records {
		if r.Enriched() {
			s.Enriched++
		}
		if r.Rated() {
			s.Rated++
			s.PerRating[r.Rating]++
			sum += r.Rating
		}
	}
	if s.Rated > 0 {
		s.Average = float64(sum) / float64(s.Rated)
	}
	return s
}

// Random picks a random record, optionally restricted to one rating value
// (0 means any). The second return is false when nothing matches.
func Random(records []store.Record, rating int) (store.Record, bool) {
	var pool []store.Record
	for _, r := range records {
		if rating == 0 || r.Rating == rating {
			pool = append(pool, r)
		}
	}
	if len(pool) == 0 {
		return store.Record{}, false
	}

	idx, err := random.IntRange(0, len(pool))
	if err != nil || idx >= len(pool) {
		idx = 0
	}
	return pool[idx], true
}
