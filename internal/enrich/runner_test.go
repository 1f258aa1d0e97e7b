package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tdhoang/gramlist/internal/extract"
	"github.com/tdhoang/gramlist/internal/store"
	"github.com/tdhoang/gramlist/internal/testsupport"
)

// fakeExtractor scripts per-handle outcomes and records call order.
type fakeExtractor struct {
	profiles map[string]extract.Profile
	errs     map[string]error
	calls    []string
}

func (f *fakeExtractor) Extract(ctx context.Context, handle string) (extract.Profile, error) {
	f.calls = append(f.calls, handle)
	if err, ok := f.errs[handle]; ok {
		return extract.Profile{}, err
	}
	if p, ok := f.profiles[handle]; ok {
		return p, nil
	}
	return extract.Profile{DisplayName: handle}, nil
}

type fakeImages struct {
	hosted map[string]string
	err    error
}

func (f *fakeImages) Persist(ctx context.Context, sourceURL, handle string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.hosted[handle], nil
}

func newRunner(st store.Store, ex Extractor, img ImagePersister) *Runner {
	r := New(st, ex, img)
	r.delay = func() time.Duration { return 0 }
	return r
}

func runJob(t *testing.T, r *Runner, requester int64) Report {
	t.Helper()
	reports := make(chan Report, 1)
	err := r.Enqueue(context.Background(), requester, func(rep Report) { reports <- rep })
	require.NoError(t, err)
	select {
	case rep := <-reports:
		return rep
	case <-time.After(5 * time.Second):
		t.Fatal("job did not report completion")
		return Report{}
	}
}

func TestNothingToDo(t *testing.T) {
	st := testsupport.NewMemoryStore(
		store.Record{URL: "https://www.instagram.com/alice/", FullName: "Alice"},
	)
	r := newRunner(st, &fakeExtractor{}, nil)

	rep := runJob(t, r, 1)
	require.True(t, rep.NothingToDo)
	require.Zero(t, st.BatchCalls, "no store write may occur for zero candidates")
}

func TestBatchWithPerItemFailure(t *testing.T) {
	st := testsupport.NewMemoryStore(
		store.Record{URL: "https://www.instagram.com/alice/"},
		store.Record{URL: "https://www.instagram.com/bob/"},
		store.Record{URL: "https://www.instagram.com/carol/"},
	)
	ex := &fakeExtractor{
		profiles: map[string]extract.Profile{
			"alice": {DisplayName: "Alice Wonder", AvatarURL: "https://src/alice.jpg"},
			"carol": {DisplayName: "Carol C", AvatarURL: "https://src/carol.jpg"},
		},
		errs: map[string]error{"bob": extract.ErrPrivate},
	}
	img := &fakeImages{hosted: map[string]string{
		"alice": "https://cdn/alice.jpg",
		"carol": "https://cdn/carol.jpg",
	}}
	r := newRunner(st, ex, img)

	rep := runJob(t, r, 1)
	require.Equal(t, 3, rep.Candidates)
	require.Equal(t, 2, rep.Enriched)
	require.Equal(t, 1, rep.Failed)
	require.NoError(t, rep.Fatal)

	require.Equal(t, []string{"alice", "bob", "carol"}, ex.calls, "items are processed sequentially in order")
	require.Equal(t, 1, st.BatchCalls, "one batched write covers the whole run")

	records := st.Snapshot()
	require.Equal(t, "Alice Wonder", records[0].FullName)
	require.Equal(t, "https://cdn/alice.jpg", records[0].AvatarURL)
	require.Equal(t, store.SentinelPrivate, records[1].FullName)
	require.Empty(t, records[1].AvatarURL)
	require.Equal(t, "Carol C", records[2].FullName)
}

func TestSessionExpiryAbortsAndDiscards(t *testing.T) {
	st := testsupport.NewMemoryStore(
		store.Record{URL: "https://www.instagram.com/alice/"},
		store.Record{URL: "https://www.instagram.com/bob/"},
		store.Record{URL: "https://www.instagram.com/carol/"},
	)
	ex := &fakeExtractor{
		profiles: map[string]extract.Profile{"alice": {DisplayName: "Alice"}},
		errs:     map[string]error{"bob": extract.ErrSessionExpired},
	}
	r := newRunner(st, ex, nil)

	rep := runJob(t, r, 1)
	require.ErrorIs(t, rep.Fatal, extract.ErrSessionExpired)
	require.False(t, rep.NothingToDo)

	require.NotContains(t, ex.calls, "carol", "no later item may run after session expiry")
	require.Zero(t, st.BatchCalls, "partial results must be discarded")
	for _, rec := range st.Snapshot() {
		require.Empty(t, rec.FullName, "store must be untouched")
	}
}

func TestUploadFailureFallsBackToSourceURL(t *testing.T) {
	st := testsupport.NewMemoryStore(
		store.Record{URL: "https://www.instagram.com/alice/"},
	)
	ex := &fakeExtractor{profiles: map[string]extract.Profile{
		"alice": {DisplayName: "Alice", AvatarURL: "https://src/alice.jpg"},
	}}
	r := newRunner(st, ex, &fakeImages{err: errors.New("cdn down")})

	rep := runJob(t, r, 1)
	require.Equal(t, 1, rep.Enriched)
	require.Zero(t, rep.Failed, "upload failure is soft, not an item failure")
	require.Equal(t, "https://src/alice.jpg", st.Snapshot()[0].AvatarURL)
}

func TestSentinelRowsNotRescraped(t *testing.T) {
	st := testsupport.NewMemoryStore(
		store.Record{URL: "https://www.instagram.com/ghost/", FullName: store.SentinelNotFound},
	)
	r := newRunner(st, &fakeExtractor{}, nil)

	rep := runJob(t, r, 1)
	require.True(t, rep.NothingToDo)
}

func TestSingleFlightPerRequester(t *testing.T) {
	st := testsupport.NewMemoryStore(
		store.Record{URL: "https://www.instagram.com/alice/"},
	)
	blocked := make(chan struct{})
	release := make(chan struct{})
	ex := &blockingExtractor{blocked: blocked, release: release}
	r := newRunner(st, ex, nil)

	reports := make(chan Report, 1)
	require.NoError(t, r.Enqueue(context.Background(), 7, func(rep Report) { reports <- rep }))
	<-blocked

	err := r.Enqueue(context.Background(), 7, func(Report) {})
	require.ErrorIs(t, err, ErrJobInFlight)

	// A different requester is accepted (it serializes on the session
	// mutex rather than being rejected).
	other := make(chan Report, 1)
	require.NoError(t, r.Enqueue(context.Background(), 8, func(rep Report) { other <- rep }))

	close(release)
	<-reports
	<-other

	// The first requester can run again once its job finished.
	require.NoError(t, r.Enqueue(context.Background(), 7, func(Report) {}))
}

type blockingExtractor struct {
	blocked chan struct{}
	release chan struct{}
	once    bool
}

func (b *blockingExtractor) Extract(ctx context.Context, handle string) (extract.Profile, error) {
	if !b.once {
		b.once = true
		close(b.blocked)
		<-b.release
	}
	return extract.Profile{DisplayName: handle}, nil
}
