// Package session provides the keyed persistence backends for interview
// sessions. Both stores satisfy interview.Store; the state machine never
// depends on a particular persistence technology.
package session

import (
	"context"
	"sync"

	"github.com/velora-ai/velora/internal/interview"
)

// MemoryStore keeps sessions in a process-local map. Suitable for the CLI,
// where sessions live and die with the process. Sessions are copied on the
// way in and out, so callers can never mutate stored state behind the
// store's back.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*interview.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*interview.Session)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*interview.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, interview.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) Put(_ context.Context, id string, sess *interview.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[id] = sess.Clone()
	return nil
}

// Len reports the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
