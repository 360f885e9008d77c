package memory

import (
	"context"
	"encoding/json"
	"sync"

	"timed-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions are stored encoded so callers never share a pointer with the store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string][]byte),
	}
}

func (s *SessionStore) Load(_ context.Context, teamKey string) (*app.RoundSession, bool, error) {
	s.mu.RLock()
	raw, ok := s.sessions[teamKey]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	var session app.RoundSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (s *SessionStore) Save(_ context.Context, session *app.RoundSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.TeamKey] = raw
	return nil
}

func (s *SessionStore) Delete(_ context.Context, teamKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, teamKey)
	return nil
}
