package bot

import "sync"

// state tags where a user is in their conversation with the bot. Anything
// not covered here (menu taps, commands) works from stateIdle.
type state int

const (
	stateIdle state = iota
	stateBrowsing
	stateViewingLikes
	stateAwaitReportReason
	stateAwaitAdminMessage
	stateAwaitBroadcast
)

// session is one user's in-flight conversation. Sessions are in-memory only:
// a restart drops prompts, never persisted state.
type session struct {
	state state

	// pending target for a report or an operator message
	targetID int64
}

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]*session)}
}

// get returns the user's session, creating an idle one on first contact.
func (s *sessionStore) get(userID int64) *session {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[userID]; ok {
		return sess
	}
	sess = &session{}
	s.sessions[userID] = sess
	return sess
}

func (s *sessionStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = &session{}
}
