package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultStateTTL bounds how long an /auth state value stays valid.
	DefaultStateTTL = 10 * time.Minute

	// maxPendingStates caps outstanding state values. Issuing past the cap
	// evicts the oldest one.
	maxPendingStates = 256
)

// stateStore issues one-time OAuth state values.
type stateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	limit  int
	now    func() time.Time
	issued map[string]time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &stateStore{
		ttl:    ttl,
		limit:  maxPendingStates,
		now:    time.Now,
		issued: make(map[string]time.Time),
	}
}

func (s *stateStore) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireLocked()
	for len(s.issued) >= s.limit {
		s.evictOldestLocked()
	}
	state := uuid.NewString()
	s.issued[state] = s.now().Add(s.ttl)
	return state
}

// consume reports whether state was issued and not yet used or expired.
func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.issued[state]
	if !ok {
		return false
	}
	delete(s.issued, state)
	return s.now().Before(expiry)
}

func (s *stateStore) expireLocked() {
	now := s.now()
	for state, expiry := range s.issued {
		if !now.Before(expiry) {
			delete(s.issued, state)
		}
	}
}

func (s *stateStore) evictOldestLocked() {
	var (
		oldest string
		expiry time.Time
	)
	for state, e := range s.issued {
		if oldest == "" || e.Before(expiry) {
			oldest, expiry = state, e
		}
	}
	delete(s.issued, oldest)
}
