package auth

import (
	"sync"
	"time"
)

// MemorySessionStore is a thread-safe in-memory SessionStore.
// Sessions are lost on server restart.
type MemorySessionStore struct {
	cfg sessionConfig

	mu   sync.RWMutex
	data map[string]Session

	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an in-memory session store and starts its
// background sweep. Call Close to stop it.
func NewMemorySessionStore(opts ...SessionOption) *MemorySessionStore {
	s := &MemorySessionStore{
		cfg:    newSessionConfig(opts),
		data:   make(map[string]Session),
		stopCh: make(chan struct{}),
	}
	if s.cfg.cleanupInterval > 0 {
		go runCleanup(s.cfg.cleanupInterval, s.stopCh, s.SweepExpired)
	}
	return s
}

func (s *MemorySessionStore) Create(userID string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	session := Session{UserID: userID, ExpiresAt: s.cfg.now().Add(s.cfg.ttl)}
	s.mu.Lock()
	s.data[token] = session
	s.mu.Unlock()
	return token, nil
}

func (s *MemorySessionStore) Lookup(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	now := s.cfg.now()
	s.mu.RLock()
	session, ok := s.data[token]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !session.expired(now) {
		return session.UserID, true
	}

	s.mu.Lock()
	// Tokens are never reissued, so whatever is stored under token now is
	// either the same expired session or nothing.
	delete(s.data, token)
	s.mu.Unlock()
	return "", false
}

func (s *MemorySessionStore) Invalidate(token string) {
	s.mu.Lock()
	delete(s.data, token)
	s.mu.Unlock()
}

func (s *MemorySessionStore) SweepExpired() {
	now := s.cfg.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, session := range s.data {
		if session.expired(now) {
			delete(s.data, token)
		}
	}
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TTL returns the lifetime given to new sessions.
func (s *MemorySessionStore) TTL() time.Duration {
	return s.cfg.ttl
}

func (s *MemorySessionStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
