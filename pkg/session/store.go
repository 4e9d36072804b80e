package session

import (
	"fmt"
	"maps"
	"sync"
)

// Store is a concurrent-safe map from session id to Session. It is pure
// storage: no TTL policy, no transport teardown. The Manager layers all
// lifecycle policy on top.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Get retrieves a session by id.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	return sess, ok
}

// Set inserts or replaces a session. Callers are expected to have checked
// Has first; an existing key is overwritten silently.
func (s *Store) Set(id string, sess *Session) error {
	if id == "" {
		return fmt.Errorf("%w: empty session id", ErrInvalidArgument)
	}
	if sess == nil {
		return fmt.Errorf("%w: nil session", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = sess
	return nil
}

// Delete removes a session and reports whether it was present.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Has reports whether a session exists for the id.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sessions[id]
	return ok
}

// All returns a snapshot of the current entries. The copy makes iteration
// during concurrent mutation (the reaper sweep) safe.
func (s *Store) All() map[string]*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(map[string]*Session, len(s.sessions))
	maps.Copy(snapshot, s.sessions)
	return snapshot
}

// Count returns the number of stored sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Clear empties the store without closing transports. Callers needing
// proper teardown must destroy sessions through the Manager instead.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*Session)
}
