// Package memory keeps recent conversation turns per conversation id.
// Sessions live for the process lifetime only.
package memory

import (
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a bounded per-conversation history. When a session grows beyond
// maxTurns the oldest turns are dropped silently.
type Store struct {
	mu       sync.RWMutex
	maxTurns int
	sessions map[string][]Turn
}

func NewStore(maxTurns int) *Store {
	return &Store{
		maxTurns: maxTurns,
		sessions: make(map[string][]Turn),
	}
}

// Append records a turn, stamping it with the current time.
func (s *Store) Append(conversationID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.sessions[conversationID], Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	s.sessions[conversationID] = turns
}

// Get returns the session's turns oldest first. Unknown ids yield an empty
// sequence, not an error.
func (s *Store) Get(conversationID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[conversationID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// Clear drops a session and reports whether it existed.
func (s *Store) Clear(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[conversationID]
	delete(s.sessions, conversationID)
	return ok
}

// Sessions reports how many conversations are currently held.
func (s *Store) Sessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
