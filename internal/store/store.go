// Package store defines the profile catalogue and its spreadsheet-backed
// implementation. The sheet is the only durable state in the system.
package store

import (
	"context"
	"strconv"
	"strings"
)

// Sentinel values written into the full-name column to mark per-item
// terminal failures without aborting a batch. They are store-visible only;
// in-process code uses the typed errors in internal/extract.
const (
	SentinelNotFound    = "Not Found"
	SentinelPrivate     = "Private Account"
	SentinelRateLimited = "Rate Limited"
	SentinelScrapeError = "Scrape Error"
)

// IsSentinel reports whether a full-name value is a failure marker rather
// than real data.
func IsSentinel(name string) bool {
	switch name {
	case SentinelNotFound, SentinelPrivate, SentinelRateLimited, SentinelScrapeError:
		return true
	}
	return false
}

// Field names a record column for cell updates.
type Field string

const (
	FieldURL      Field = "url"
	FieldFullName Field = "full_name"
	FieldAvatar   Field = "profile_pic_url"
	FieldRating   Field = "rating"
)

// Record is one catalogued profile. RowIndex is the 1-based spreadsheet row
// (data starts at row 2) and shifts down by one for every record after a
// deletion.
type Record struct {
	URL       string
	Username  string
	FullName  string
	AvatarURL string
	Rating    int
	RowIndex  int
}

// Enriched reports whether scraping has populated this record with real data.
func (r Record) Enriched() bool {
	return (r.FullName != "" && !IsSentinel(r.FullName)) || r.AvatarURL != ""
}

// Rated reports whether a rating has been recorded.
func (r Record) Rated() bool {
	return r.Rating >= 1 && r.Rating <= 5
}

// NeedsEnrichment reports whether the background job should scrape this
// record: it has a URL but no display name yet.
func (r Record) NeedsEnrichment() bool {
	return r.URL != "" && r.FullName == ""
}

// DisplayTitle is what chat surfaces show for the record.
func (r Record) DisplayTitle() string {
	if r.FullName != "" && !IsSentinel(r.FullName) {
		return r.FullName
	}
	return r.Username
}

// CellUpdate is one cell mutation within a batched write.
type CellUpdate struct {
	Row   int
	Field Field
	Value string
}

// Store is the record-store contract the rest of the system consumes.
// Writes are last-writer-wins with no isolation; callers re-read fresh
// state right before dedup checks or row-index lookups instead of caching.
type Store interface {
	ReadAll(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, rec Record) error
	UpdateCell(ctx context.Context, row int, field Field, value string) error
	BatchUpdate(ctx context.Context, updates []CellUpdate) error
	DeleteRow(ctx context.Context, row int) error
}

// FindByHandle scans records for a case-insensitive username match.
func FindByHandle(records []Record, username string) (Record, bool) {
	username = strings.ToLower(strings.TrimSpace(username))
	for _, r := range records {
		if strings.ToLower(r.Username) == username {
			return r, true
		}
	}
	return Record{}, false
}

// ParseRating reads a rating cell, tolerating blanks and junk.
func ParseRating(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > 5 {
		return 0
	}
	return n
}
