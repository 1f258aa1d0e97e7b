// Package enrich runs the profile-enrichment job: scrape every record that
// still lacks a display name, re-host its avatar, and write everything back
// to the store in one batch.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	random "github.com/mazen160/go-random"

	"github.com/tdhoang/gramlist/internal/extract"
	"github.com/tdhoang/gramlist/internal/store"
)

// ErrJobInFlight is the immediate rejection when a requester already has an
// enrichment job running.
var ErrJobInFlight = errors.New("an enrichment job is already running for this requester")

// Jitter bounds between consecutive items, to stay under upstream rate
// limits.
const (
	minDelaySeconds = 3
	maxDelaySeconds = 10
)

// Extractor resolves a handle into profile data. Satisfied by
// *extract.Engine.
type Extractor interface {
	Extract(ctx context.Context, handle string) (extract.Profile, error)
}

// ImagePersister re-hosts an avatar under a stable key. Satisfied by
// *imagestore.Cloudinary. May be absent when no CDN is configured.
type ImagePersister interface {
	Persist(ctx context.Context, sourceURL, handle string) (string, error)
}

// Report is the single out-of-band completion message for a job.
type Report struct {
	// NothingToDo distinguishes "zero candidates" from "failed to do
	// anything".
	NothingToDo bool
	Candidates  int
	Enriched    int
	Failed      int
	// Fatal aborted the batch; partial results were discarded.
	Fatal error
}

// Runner executes enrichment jobs off the interactive path. At most one job
// runs per requester, and all jobs serialize on the shared fetcher session.
type Runner struct {
	store     store.Store
	extractor Extractor
	images    ImagePersister

	// delay returns the pause between items; replaced in tests.
	delay func() time.Duration

	mu       sync.Mutex
	inflight map[int64]bool

	// sessionMu keeps two requesters from driving the shared authenticated
	// session at once.
	sessionMu sync.Mutex
}

// New creates a runner. images may be nil.
func New(st store.Store, ex Extractor, images ImagePersister) *Runner {
	return &Runner{
		store:     st,
		extractor: ex,
		images:    images,
		delay:     jitter,
		inflight:  make(map[int64]bool),
	}
}

// Enqueue starts an enrichment job for the requester. It acknowledges
// immediately: nil means the job was accepted and report will be called
// exactly once when it finishes; ErrJobInFlight means one is already
// running.
func (r *Runner) Enqueue(ctx context.Context, requester int64, report func(Report)) error {
	r.mu.Lock()
	if r.inflight[requester] {
		r.mu.Unlock()
		return ErrJobInFlight
	}
	r.inflight[requester] = true
	r.mu.Unlock()

	go func() {
		rep := r.run(ctx)
		r.mu.Lock()
		delete(r.inflight, requester)
		r.mu.Unlock()
		report(rep)
	}()
	return nil
}

// run processes the whole batch sequentially and performs one batched
// write-back at the end.
func (r *Runner) run(ctx context.Context) Report {
	r.sessionMu.Lock()
	defer r.sessionMu.Unlock()

	records, err := r.store.ReadAll(ctx)
	if err != nil {
		return Report{Fatal: fmt.Errorf("read records: %w", err)}
	}

	var candidates []store.Record
	for _, rec := range records {
		if rec.NeedsEnrichment() && rec.Username != "" {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return Report{NothingToDo: true}
	}

	slog.Info("enrichment job started", "candidates", len(candidates))

	rep := Report{Candidates: len(candidates)}
	var updates []store.CellUpdate
	for i, rec := range candidates {
		profile, err := r.extractor.Extract(ctx, rec.Username)
		switch {
		case errors.Is(err, extract.ErrSessionExpired):
			// Every remaining item would fail identically. Abort and
			// discard unwritten partial results for this run.
			slog.Error("session expired, aborting batch", "handle", rec.Username, "done", i)
			rep.Fatal = err
			return rep
		case err != nil:
			sentinel := sentinelFor(err)
			slog.Warn("enrichment failed", "handle", rec.Username, "marker", sentinel, "err", err)
			updates = append(updates,
				store.CellUpdate{Row: rec.RowIndex, Field: store.FieldFullName, Value: sentinel},
				store.CellUpdate{Row: rec.RowIndex, Field: store.FieldAvatar, Value: ""},
			)
			rep.Failed++
		default:
			avatar := r.persistAvatar(ctx, profile.AvatarURL, rec.Username)
			updates = append(updates,
				store.CellUpdate{Row: rec.RowIndex, Field: store.FieldFullName, Value: profile.DisplayName},
				store.CellUpdate{Row: rec.RowIndex, Field: store.FieldAvatar, Value: avatar},
			)
			rep.Enriched++
			slog.Info("profile enriched", "handle", rec.Username, "name", profile.DisplayName)
		}

		if i < len(candidates)-1 {
			select {
			case <-ctx.Done():
				rep.Fatal = ctx.Err()
				return rep
			case <-time.After(r.delay()):
			}
		}
	}

	if err := r.store.BatchUpdate(ctx, updates); err != nil {
		rep.Fatal = fmt.Errorf("write back results: %w", err)
		return rep
	}

	slog.Info("enrichment job complete", "enriched", rep.Enriched, "failed", rep.Failed)
	return rep
}

// persistAvatar re-hosts the avatar, falling back to the source URL when
// upload fails. Upload failure is soft and never surfaces to the requester.
func (r *Runner) persistAvatar(ctx context.Context, sourceURL, handle string) string {
	if r.images == nil || sourceURL == "" {
		return sourceURL
	}
	hosted, err := r.images.Persist(ctx, sourceURL, handle)
	if err != nil {
		slog.Warn("avatar re-host failed, keeping source url", "handle", handle, "err", err)
		return sourceURL
	}
	return hosted
}

// sentinelFor maps a terminal extraction failure to its store marker.
func sentinelFor(err error) string {
	switch {
	case errors.Is(err, extract.ErrNotFound):
		return store.SentinelNotFound
	case errors.Is(err, extract.ErrPrivate):
		return store.SentinelPrivate
	case errors.Is(err, extract.ErrRateLimited):
		return store.SentinelRateLimited
	}
	return store.SentinelScrapeError
}

func jitter() time.Duration {
	seconds, err := random.IntRange(minDelaySeconds, maxDelaySeconds)
	if err != nil {
		seconds = minDelaySeconds
	}
	return time.Duration(seconds) * time.Second
}
