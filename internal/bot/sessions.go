package bot

import (
	"sync"

	"github.com/tdhoang/gramlist/internal/store"
)

// State is the conversation state of one requester.
type State int

const (
	StateIdle State = iota
	// StateAwaitingRating: a rating queue is draining; one item is active.
	StateAwaitingRating
	// StateAwaitingDeleteConfirm: a single delete awaits yes/no.
	StateAwaitingDeleteConfirm
	// StateAwaitingUpdateRating: a single record awaits a new rating.
	StateAwaitingUpdateRating
	// StatePagingResults: a search result set is being paged through.
	StatePagingResults
)

// pendingProfile is one queued, not-yet-rated addition.
type pendingProfile struct {
	URL      string
	Username string
}

// Session is the in-memory conversation state for one requester. It is
// transient by design: a restart loses any unrated remainder, while the
// Added records themselves persist in the store.
type Session struct {
	State State

	// Rating queue, strict FIFO. Current is the item being rated.
	Queue   []pendingProfile
	Current *pendingProfile
	Total   int
	Done    int

	// Target of a delete/update flow.
	Target *store.Record

	// Paged search results.
	Results []store.Record
	Page    int
}

// Sessions is the per-requester session store. Sessions are created on
// first use and cleared on completion or cancellation; state never leaks
// across requesters.
type Sessions struct {
	mu          sync.Mutex
	byRequester map[int64]*Session
}

func NewSessions() *Sessions {
	return &Sessions{byRequester: make(map[int64]*Session)}
}

// Get returns the requester's session, creating an idle one if needed.
func (s *Sessions) Get(requester int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byRequester[requester]
	if !ok {
		sess = &Session{}
		s.byRequester[requester] = sess
	}
	return sess
}

// Clear drops the requester's session entirely.
func (s *Sessions) Clear(requester int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byRequester, requester)
}
