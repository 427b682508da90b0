package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/jmcleod/phantom/internal/util"
	"github.com/jmcleod/phantom/storage"
)

const (
	sessionBucket         = "sessions"
	sessionKeyBucket      = "session_keys"
	sessionKeyID          = "current"
	sessionAADPrefix      = "session:"
	sessionKeyWrappingAAD = "phantom:session_master_key:v1"
)

// PersistentSessionStore stores sessions in a storage.Repository, encrypted
// at rest using AES-256-GCM. Sessions survive server restarts.
//
// Records are keyed by the SHA-256 of the token, so the repository never
// holds a usable cookie value. The session encryption key is sealed with
// an externally provided wrapping key before being stored and is kept in a
// memguard enclave while the store is open.
type PersistentSessionStore struct {
	cfg    sessionConfig
	repo   storage.Repository
	key    *memguard.Enclave
	logger *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ SessionStore = (*PersistentSessionStore)(nil)

// NewPersistentSessionStore creates a session store backed by repo. The
// wrappingKey (32 bytes) seals the session encryption key at rest and is
// never stored in the repository.
func NewPersistentSessionStore(repo storage.Repository, wrappingKey []byte, logger *slog.Logger, opts ...SessionOption) (*PersistentSessionStore, error) {
	if len(wrappingKey) != util.AESKeySize {
		return nil, fmt.Errorf("wrapping key must be exactly %d bytes, got %d", util.AESKeySize, len(wrappingKey))
	}
	if logger == nil {
		logger = slog.Default()
	}
	key, err := loadOrCreateSessionKey(repo, wrappingKey)
	if err != nil {
		return nil, err
	}
	s := &PersistentSessionStore{
		cfg:    newSessionConfig(opts),
		repo:   repo,
		key:    memguard.NewEnclave(key),
		logger: logger.With("component", "sessions"),
		stopCh: make(chan struct{}),
	}
	if s.cfg.cleanupInterval > 0 {
		go runCleanup(s.cfg.cleanupInterval, s.stopCh, s.SweepExpired)
	}
	return s, nil
}

// TTL returns the lifetime given to new sessions.
func (s *PersistentSessionStore) TTL() time.Duration {
	return s.cfg.ttl
}

// Close stops the background cleanup goroutine.
func (s *PersistentSessionStore) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *PersistentSessionStore) Create(userID string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	session := Session{UserID: userID, ExpiresAt: s.cfg.now().Add(s.cfg.ttl)}
	data, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	id := sessionRecordID(token)
	env, err := s.seal(data, id)
	if err != nil {
		return "", fmt.Errorf("sealing session: %w", err)
	}
	if err := s.repo.Put(sessionBucket, id, env); err != nil {
		return "", fmt.Errorf("storing session: %w", err)
	}
	return token, nil
}

func (s *PersistentSessionStore) Lookup(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	id := sessionRecordID(token)
	session, ok := s.load(id)
	if !ok {
		return "", false
	}
	if session.expired(s.cfg.now()) {
		s.delete(id)
		return "", false
	}
	return session.UserID, true
}

func (s *PersistentSessionStore) Invalidate(token string) {
	if token == "" {
		return
	}
	s.delete(sessionRecordID(token))
}

func (s *PersistentSessionStore) SweepExpired() {
	ids, err := s.repo.List(sessionBucket)
	if err != nil {
		s.logger.Error("listing sessions", slog.Any("error", err))
		return
	}
	now := s.cfg.now()
	for _, id := range ids {
		session, ok := s.load(id)
		// Unreadable entries are removed along with expired ones.
		if !ok || session.expired(now) {
			s.delete(id)
		}
	}
}

func (s *PersistentSessionStore) load(id string) (Session, bool) {
	env, err := s.repo.Get(sessionBucket, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("loading session", slog.Any("error", err))
		}
		return Session{}, false
	}
	data, err := s.open(env, id)
	if err != nil {
		return Session{}, false
	}
	defer util.WipeBytes(data)
	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return Session{}, false
	}
	return session, true
}

func (s *PersistentSessionStore) delete(id string) {
	if err := s.repo.Delete(sessionBucket, id); err != nil {
		s.logger.Error("deleting session", slog.Any("error", err))
	}
}

func (s *PersistentSessionStore) seal(data []byte, id string) (*storage.Envelope, error) {
	buf, err := s.key.Open()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()
	return storage.SealRecord(buf.Bytes(), data, []byte(sessionAADPrefix+id))
}

func (s *PersistentSessionStore) open(env *storage.Envelope, id string) ([]byte, error) {
	buf, err := s.key.Open()
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()
	return storage.OpenRecord(buf.Bytes(), env, []byte(sessionAADPrefix+id))
}

// sessionRecordID hashes the token so that repository contents and lookup
// timing reveal nothing about live cookie values.
func sessionRecordID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// loadOrCreateSessionKey loads the session encryption key from storage,
// unsealing it with the wrapping key. If no key exists, or the stored key
// cannot be opened with this wrapping key, a new random key is generated,
// sealed and persisted. Sessions sealed under a previous key become
// unreadable and are removed by the next sweep.
func loadOrCreateSessionKey(repo storage.Repository, wrappingKey []byte) ([]byte, error) {
	aad := []byte(sessionKeyWrappingAAD)

	env, err := repo.Get(sessionKeyBucket, sessionKeyID)
	switch {
	case err == nil:
		key, openErr := storage.OpenRecord(wrappingKey, env, aad)
		if openErr == nil && len(key) == util.AESKeySize {
			return key, nil
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("loading session key: %w", err)
	}

	key, err := util.RandomBytes(util.AESKeySize)
	if err != nil {
		return nil, err
	}
	sealed, err := storage.SealRecord(wrappingKey, key, aad)
	if err != nil {
		util.WipeBytes(key)
		return nil, fmt.Errorf("sealing new session key: %w", err)
	}
	if err := repo.Put(sessionKeyBucket, sessionKeyID, sealed); err != nil {
		util.WipeBytes(key)
		return nil, fmt.Errorf("persisting session key: %w", err)
	}
	return key, nil
}
