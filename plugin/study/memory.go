package study

import (
	"context"
	"slices"
	"sync"

	"github.com/hrygo/flashdeck/store"
)

// MemorySessionStore keeps snapshots in process memory. Snapshots are copied on the way
// in and out so callers never share slices with the store.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int32]*store.StudySession
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int32]*store.StudySession)}
}

func (s *MemorySessionStore) SaveSession(ctx context.Context, session *store.StudySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = copySnapshot(session)
	return nil
}

func (s *MemorySessionStore) LoadSession(ctx context.Context, userID int32) (*store.StudySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	return copySnapshot(session), nil
}

func (s *MemorySessionStore) ClearSession(ctx context.Context, userID int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

func copySnapshot(session *store.StudySession) *store.StudySession {
	c := *session
	c.Queue = slices.Clone(session.Queue)
	c.MasteredIDs = slices.Clone(session.MasteredIDs)
	return &c
}

var _ SessionStore = (*MemorySessionStore)(nil)
