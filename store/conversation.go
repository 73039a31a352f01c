// Package store holds the in-memory conversation state shared by all
// concurrent request handlers.
package store

import (
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Turn is one user-utterance/assistant-reply pair within a session.
// Turns are append-only: once inserted they are never reordered or mutated.
type Turn struct {
	UserText      string    `json:"user_text"`
	AssistantText string    `json:"assistant_text"`
	// Sequence is an advisory ordinal, caller-supplied or assigned at append.
	Sequence  int       `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a snapshot of one session's state.
type Conversation struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

type session struct {
	turns     []Turn
	updatedAt time.Time
}

// ConversationStore manages conversation sessions with a sliding window
// of the most recent turns. Thread-safe for concurrent access.
type ConversationStore struct {
	mu        sync.RWMutex
	sessions  map[string]*session
	retention int // maximum turns kept per session
}

// NewConversationStore creates a store keeping at most retention turns per
// session (default 10).
func NewConversationStore(retention int) *ConversationStore {
	if retention <= 0 {
		retention = 10
	}
	return &ConversationStore{
		sessions:  make(map[string]*session),
		retention: retention,
	}
}

// Retention returns the per-session turn window.
func (s *ConversationStore) Retention() int {
	return s.retention
}

// Create allocates a new empty session and returns its id.
func (s *ConversationStore) Create() Conversation {
	id := shortuuid.New()
	now := time.Now()

	s.mu.Lock()
	s.sessions[id] = &session{updatedAt: now}
	s.mu.Unlock()

	return Conversation{ID: id, Turns: []Turn{}, UpdatedAt: now}
}

// GetOrCreate returns the session for id, allocating a new session (with a
// fresh id) when id is empty or unknown. The returned conversation is a
// snapshot; mutating it does not affect the store.
func (s *ConversationStore) GetOrCreate(id string) Conversation {
	if id != "" {
		if conv, ok := s.Get(id); ok {
			return conv
		}
	}
	return s.Create()
}

// Get returns a snapshot of the session, if it exists.
func (s *ConversationStore) Get(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Conversation{}, false
	}
	turns := make([]Turn, len(sess.turns))
	copy(turns, sess.turns)
	return Conversation{ID: id, Turns: turns, UpdatedAt: sess.updatedAt}, true
}

// Append records a completed turn on the session and truncates the history
// from the oldest end to the retention window. Appending to an unknown id
// is a silent no-op: the session may have been deleted concurrently, which
// is a designed race rather than an error.
func (s *ConversationStore) Append(id string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return
	}

	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	if turn.Sequence == 0 {
		turn.Sequence = len(sess.turns) + 1
	}

	sess.turns = append(sess.turns, turn)
	if len(sess.turns) > s.retention {
		sess.turns = sess.turns[len(sess.turns)-s.retention:]
	}
	sess.updatedAt = time.Now()
}

// Delete removes the session and reports whether it existed.
func (s *ConversationStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Sweep removes all sessions whose last update is older than ttl and
// returns how many were removed. Invoked opportunistically at the start of
// pipeline runs; staleness only wastes memory, never correctness.
func (s *ConversationStore) Sweep(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.updatedAt) > ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of active sessions.
func (s *ConversationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
