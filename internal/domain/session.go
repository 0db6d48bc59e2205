package domain

import (
	"sync"
	"time"
)

// Session is the gateway-side state of one connection.
type Session struct {
	ID            string
	CurrentRoomID string
	DisplayName   string
	CreatedAt     time.Time
	LastActiveAt  time.Time
	mu            sync.RWMutex
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// JoinRoom binds the session to roomID under displayName.
func (s *Session) JoinRoom(roomID, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CurrentRoomID = roomID
	s.DisplayName = displayName
	s.LastActiveAt = time.Now()
}

// TakeRoom unbinds the session and returns the room it was in. Only one
// caller ever observes a given binding, so leave runs once per join.
func (s *Session) TakeRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	roomID := s.CurrentRoomID
	s.CurrentRoomID = ""
	s.LastActiveAt = time.Now()
	return roomID
}

func (s *Session) GetCurrentRoom() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.CurrentRoomID
}

// Binding returns the current room and the name the session joined it
// under. Both are empty outside a room.
func (s *Session) Binding() (roomID, displayName string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.CurrentRoomID == "" {
		return "", ""
	}
	return s.CurrentRoomID, s.DisplayName
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}
