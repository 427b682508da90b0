package auth

import (
	"time"

	"github.com/jmcleod/phantom/internal/util"
)

const (
	// DefaultSessionTTL is the fixed lifetime of a session. Sessions are
	// never extended on use.
	DefaultSessionTTL = 7 * 24 * time.Hour
	// sessionTokenBytes gives 256 bits of entropy per token.
	sessionTokenBytes      = 32
	defaultCleanupInterval = 5 * time.Minute
)

// SessionStore maps opaque session tokens to user ids.
//
// Implementations must be safe for concurrent use. Lookup, Invalidate and
// SweepExpired never fail: a missing, malformed or expired token is simply
// "no session".
type SessionStore interface {
	// Create stores a new session for userID and returns its freshly
	// generated token.
	Create(userID string) (string, error)
	// Lookup returns the user id for token. An expired session is deleted
	// and reported as absent.
	Lookup(token string) (string, bool)
	// Invalidate removes the session. Unknown tokens are ignored.
	Invalidate(token string)
	// SweepExpired deletes every session whose expiry has passed.
	SweepExpired()
	// TTL is the fixed lifetime given to new sessions.
	TTL() time.Duration
	// Close stops background cleanup and releases resources.
	Close()
}

// Session is the server-side record for a token.
type Session struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionOption configures a session store.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(c *sessionConfig) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCleanupInterval sets how often expired sessions are swept in the
// background. Zero disables the background sweep; lazy expiry on Lookup
// still applies.
func WithCleanupInterval(d time.Duration) SessionOption {
	return func(c *sessionConfig) {
		c.cleanupInterval = d
	}
}

// WithSessionClock replaces time.Now, mainly for tests.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(c *sessionConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func newSessionConfig(opts []SessionOption) sessionConfig {
	cfg := sessionConfig{
		ttl:             DefaultSessionTTL,
		cleanupInterval: defaultCleanupInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func newSessionToken() (string, error) {
	return util.RandomHex(sessionTokenBytes)
}

// runCleanup calls sweep every interval until stop is closed.
func runCleanup(interval time.Duration, stop <-chan struct{}, sweep func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			sweep()
		}
	}
}
