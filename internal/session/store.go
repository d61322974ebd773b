package session

import "sync"

// Store keeps one session per user id. Do serializes work on a single id while
// different ids proceed in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu   sync.Mutex
	sess Session
}

func NewStore() *Store {
	return &Store{entries: map[int64]*entry{}}
}

// Do runs fn with exclusive access to the session of id, creating it if absent.
// Changes fn makes through the pointer are kept.
func (s *Store) Do(id int64, fn func(*Session) error) error {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.sess)
}

// Snapshot returns a copy of the session of id.
func (s *Store) Snapshot(id int64) (Session, bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone(), true
}

// Len returns the number of sessions held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) entry(id int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{sess: New()}
		s.entries[id] = e
	}
	return e
}
