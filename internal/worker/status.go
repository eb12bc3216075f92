package worker

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ─── DELIVERY STATUS ─────────────────────────────────────────────────────────

// State is the lifecycle of one background delivery.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateSent       State = "sent"
	StateFailed     State = "failed"
)

// Status is the inspectable outcome of a detached send. It is what makes
// fire-and-forget observable: the client gets the ID back immediately and
// can poll GET /delivery/{id} instead of reading server logs.
type Status struct {
	ID         uuid.UUID `json:"id"`
	State      State     `json:"state"`
	Recipient  string    `json:"recipient"`
	Error      string    `json:"error,omitempty"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StatusReader is the narrow interface the api package uses for lookups.
type StatusReader interface {
	Get(id uuid.UUID) (Status, bool)
}

// StatusStore holds delivery statuses for the process lifetime. Entries are
// request-scoped artifacts — nothing needs to survive a restart, matching
// the no-retry rule (a lost process means the client resubmits).
type StatusStore struct {
	mu sync.RWMutex
	m  map[uuid.UUID]Status
}

// NewStatusStore creates an empty store.
func NewStatusStore() *StatusStore {
	return &StatusStore{m: make(map[uuid.UUID]Status)}
}

// Get returns the status for id.
func (s *StatusStore) Get(id uuid.UUID) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.m[id]
	return st, ok
}

func (s *StatusStore) put(st Status) {
	st.UpdatedAt = time.Now()
	s.mu.Lock()
	s.m[st.ID] = st
	s.mu.Unlock()
}

func (s *StatusStore) transition(id uuid.UUID, state State, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[id]
	if !ok {
		return
	}
	st.State = state
	st.Error = errMsg
	st.UpdatedAt = time.Now()
	s.m[id] = st
}
