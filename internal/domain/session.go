package domain

import (
	"sync"
	"time"
)

// Session is the per-connection state the gateway keeps outside the
// presence indexes.
type Session struct {
	ID           string
	displayName  string
	connectedAt  time.Time
	lastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		connectedAt:  now,
		lastActiveAt: now,
	}
}

func (s *Session) SetDisplayName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayName = name
}

// DisplayName returns the assigned name, or "" before assignment.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

// ClearDisplayName returns the current name and forgets it.
func (s *Session) ClearDisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := s.displayName
	s.displayName = ""
	return name
}

func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

func (s *Session) LastActiveAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActiveAt
}
