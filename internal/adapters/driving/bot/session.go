package bot

import (
	"sync"

	"github.com/shelfbot/shelfbot/internal/core/domain"
)

// sessionStore keeps the latest search session per chat. Sessions are
// in-memory only; a restart simply forgets them and users search again.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*domain.SearchSession
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]*domain.SearchSession)}
}

// put replaces the chat's session; a new search invalidates the old one.
func (s *sessionStore) put(chatID int64, session *domain.SearchSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = session
}

func (s *sessionStore) get(chatID int64) (*domain.SearchSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[chatID]
	return session, ok
}

// drop forgets the chat's session, so stale page buttons report the
// search as expired instead of serving results that no longer apply.
func (s *sessionStore) drop(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// clear forgets every session. Used after a catalog reset; the retained
// result lists reference records that no longer exist.
func (s *sessionStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[int64]*domain.SearchSession)
}
