// Package memory holds the in-process conversation memory: a keyed cache
// of rolling session state and the prompt builder that turns it into a
// bounded message list.
//
// Sessions live for the process lifetime. There is no eviction and no
// rehydration from the durable store after a restart; a conversation's
// first access after startup yields an empty session.
package memory

import (
	"slices"
	"sync"

	"github.com/memochat/memochat/domain"
)

// Turn is one lightweight session message.
type Turn struct {
	Role      domain.Role
	Content   string
	Reasoning string
}

// Session is the rolling per-conversation memory. Its messages are a
// suffix of the conversation's durable history; older turns are
// represented only through Summary.
type Session struct {
	Messages []Turn
	Summary  string
}

// Snapshot is a copy of a session's mutable state, used to restore it
// exactly after a failed summarization attempt.
type Snapshot struct {
	messages []Turn
	summary  string
}

// SessionStore is the process-wide keyed session cache. All mutation goes
// through its methods; callers that need a whole turn to be exclusive
// against concurrent turns on the same conversation take the
// per-conversation lock via Lock.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	locks    map[string]*sync.Mutex
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-conversation mutex and returns its unlock
// function. At most one turn per conversation may run between Lock and
// the returned unlock.
func (s *SessionStore) Lock(conversationID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[conversationID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// GetOrCreate returns a copy of the session for a conversation, creating
// an empty one if absent. It never fails.
func (s *SessionStore) GetOrCreate(conversationID string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(conversationID)
	return Session{Messages: slices.Clone(sess.Messages), Summary: sess.Summary}
}

// Len returns the session's current raw message count without creating a
// session for an unknown conversation.
func (s *SessionStore) Len(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[conversationID]; ok {
		return len(sess.Messages)
	}
	return 0
}

// Reset clears a session's messages and summary.
func (s *SessionStore) Reset(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(conversationID)
	sess.Messages = nil
	sess.Summary = ""
}

// AppendTurn extends a session with a finalized turn's user and assistant
// messages.
func (s *SessionStore) AppendTurn(conversationID string, user, assistant Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(conversationID)
	sess.Messages = append(sess.Messages, user, assistant)
}

// ApplySummary atomically replaces a session's messages with the retained
// tail and sets its summary.
func (s *SessionStore) ApplySummary(conversationID, summary string, retainedTail []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(conversationID)
	sess.Messages = slices.Clone(retainedTail)
	sess.Summary = summary
}

// Trim truncates a session to its most recent max messages. Applying it
// twice yields the same result as applying it once.
func (s *SessionStore) Trim(conversationID string, max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(conversationID)
	if len(sess.Messages) > max {
		sess.Messages = slices.Clone(sess.Messages[len(sess.Messages)-max:])
	}
}

// Snapshot copies a session's mutable state.
func (s *SessionStore) Snapshot(conversationID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(conversationID)
	return Snapshot{messages: slices.Clone(sess.Messages), summary: sess.Summary}
}

// Restore puts a session back to a previously taken snapshot.
func (s *SessionStore) Restore(conversationID string, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.getOrCreateLocked(conversationID)
	sess.Messages = slices.Clone(snap.messages)
	sess.Summary = snap.summary
}

// getOrCreateLocked requires s.mu to be held.
func (s *SessionStore) getOrCreateLocked(conversationID string) *Session {
	sess, ok := s.sessions[conversationID]
	if !ok {
		sess = &Session{}
		s.sessions[conversationID] = sess
	}
	return sess
}
