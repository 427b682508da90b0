// Package auth implements password and TOTP authentication with
// cookie-carried, server-side sessions.
//
// A Service composes a CredentialStore (accounts), a SessionStore (token →
// user id), a PasswordHasher, a TOTP engine and a CookieTransport. Login
// runs the credential state machine and issues a session; Resolve maps an
// incoming request back to the calling user.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// Config holds deployment settings for the auth service. Zero values take
// the defaults. The session lifetime belongs to the SessionStore; the
// cookie's Max-Age follows it.
type Config struct {
	CookieName        string
	SecureCookies     bool
	BcryptCost        int
	TOTPIssuer        string
	TOTPWindow        int
	MinPasswordLength int
}

// DefaultConfig returns the production defaults: bcrypt cost 10, ±2 step TOTP window and 8 character minimum passwords. Secure
// cookies are off and must be enabled explicitly behind HTTPS.
func DefaultConfig() Config {
	return Config{
		CookieName:        DefaultCookieName,
		BcryptCost:        DefaultBcryptCost,
		TOTPIssuer:        DefaultTOTPIssuer,
		TOTPWindow:        DefaultTOTPWindow,
		MinPasswordLength: 8,
	}
}

// Identity is the authenticated principal behind a request.
type Identity struct {
	UserID string `json:"id"`
}

// User is the public view of an account returned after login.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// LoginRequest carries the login form. TOTPCode may be empty on the first
// round trip.
type LoginRequest struct {
	Username string
	Password string
	TOTPCode string
}

// LoginResult is the outcome of a login that did not fail. When
// RequireTOTP is set no session was created and the caller should prompt
// for a one-time code and submit the full request again.
type LoginResult struct {
	RequireTOTP bool
	User        User
}

// TOTPSetup is returned when a user starts two-factor enrollment.
type TOTPSetup struct {
	Secret     string
	OtpauthURL string
	// QRCode is a PNG data URL encoding OtpauthURL.
	QRCode string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. If not set, a JSON logger writing
// to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock replaces time.Now for TOTP verification.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service is the auth orchestrator.
type Service struct {
	creds    CredentialStore
	sessions SessionStore
	cookies  *CookieTransport
	hasher   *PasswordHasher
	totp     *TOTP
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires the auth service. The session store is owned by the
// caller, which must Close it at shutdown.
func NewService(creds CredentialStore, sessions SessionStore, cfg Config, opts ...Option) *Service {
	defaults := DefaultConfig()
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = defaults.MinPasswordLength
	}
	if cfg.TOTPWindow <= 0 {
		cfg.TOTPWindow = defaults.TOTPWindow
	}
	s := &Service{
		creds:    creds,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	s.logger = s.logger.With("component", "auth")
	s.cookies = NewCookieTransport(cfg.CookieName, cfg.SecureCookies, sessions.TTL())
	s.hasher = NewPasswordHasher(cfg.BcryptCost)
	s.totp = NewTOTP(cfg.TOTPIssuer, cfg.TOTPWindow, s.now)
	return s
}

// Cookies returns the cookie transport used for session tokens.
func (s *Service) Cookies() *CookieTransport {
	return s.cookies
}

// Login verifies the password and, when enabled, the TOTP code, then
// creates a session and writes its cookie to w. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, req LoginRequest) (LoginResult, error) {
	if req.Username == "" || req.Password == "" {
		return LoginResult{}, &ValidationError{Message: "username and password are required"}
	}

	cred, err := s.creds.FindByUsername(ctx, req.Username)
	if errors.Is(err, ErrCredentialNotFound) {
		// Spend the same bcrypt time as a real comparison.
		s.hasher.Verify(req.Password, s.dummyDigest())
		s.logger.InfoContext(ctx, "login failed", slog.String("reason", "unknown user"))
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("loading credentials: %w", err)
	}

	if !s.hasher.Verify(req.Password, cred.PasswordHash) {
		s.logger.InfoContext(ctx, "login failed",
			slog.String("reason", "wrong password"), slog.String("user_id", cred.UserID))
		return LoginResult{}, ErrInvalidCredentials
	}

	if cred.TOTPEnabled && cred.TOTPSecret != "" {
		if req.TOTPCode == "" {
			return LoginResult{RequireTOTP: true}, nil
		}
		if !s.totp.Verify(req.TOTPCode, cred.TOTPSecret) {
			s.logger.InfoContext(ctx, "login failed",
				slog.String("reason", "invalid totp"), slog.String("user_id", cred.UserID))
			return LoginResult{}, ErrInvalidTOTP
		}
	}

	token, err := s.sessions.Create(cred.UserID)
	if err != nil {
		return LoginResult{}, fmt.Errorf("creating session: %w", err)
	}
	s.cookies.Write(w, token)
	s.logger.InfoContext(ctx, "login succeeded", slog.String("user_id", cred.UserID))
	return LoginResult{User: User{ID: cred.UserID, Username: cred.Username}}, nil
}

// Resolve returns the identity behind the request's session cookie, or
// ErrUnauthenticated when the cookie is missing, malformed, unknown or
// expired.
func (s *Service) Resolve(r *http.Request) (Identity, error) {
	token, ok := s.cookies.Read(r)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	userID, ok := s.sessions.Lookup(token)
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: userID}, nil
}

// Logout invalidates the request's session, if any, and clears the
// cookie. It always succeeds.
func (s *Service) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := s.cookies.Read(r); ok {
		s.sessions.Invalidate(token)
	}
	s.cookies.Clear(w)
	s.logger.InfoContext(r.Context(), "logout")
}

// SetupTOTP generates a new secret for the user and stores it unconfirmed.
// Two-factor login stays off until EnableTOTP confirms a code; running
// setup again on an enabled account turns it off until re-confirmed.
func (s *Service) SetupTOTP(ctx context.Context, id Identity) (TOTPSetup, error) {
	cred, err := s.creds.FindByID(ctx, id.UserID)
	if err != nil {
		return TOTPSetup{}, err
	}
	enrollment, err := s.totp.GenerateSecret(cred.Username)
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("generating totp secret: %w", err)
	}
	qr, err := QRCodeDataURL(enrollment.OtpauthURL)
	if err != nil {
		return TOTPSetup{}, fmt.Errorf("rendering qr code: %w", err)
	}
	if err := s.creds.UpdateTOTP(ctx, cred.UserID, enrollment.Secret, false); err != nil {
		return TOTPSetup{}, fmt.Errorf("storing totp secret: %w", err)
	}
	s.logger.InfoContext(ctx, "totp setup started", slog.String("user_id", cred.UserID))
	return TOTPSetup{
		Secret:     enrollment.Secret,
		OtpauthURL: enrollment.OtpauthURL,
		QRCode:     qr,
	}, nil
}

// EnableTOTP confirms enrollment with a code generated from the pending
// secret.
func (s *Service) EnableTOTP(ctx context.Context, id Identity, code string) error {
	if code == "" {
		return validationError("token", "is required")
	}
	cred, err := s.creds.FindByID(ctx, id.UserID)
	if err != nil {
		return err
	}
	if cred.TOTPSecret == "" {
		return ErrTOTPNotSetUp
	}
	if !s.totp.Verify(code, cred.TOTPSecret) {
		return ErrInvalidTOTP
	}
	if err := s.creds.UpdateTOTP(ctx, cred.UserID, cred.TOTPSecret, true); err != nil {
		return fmt.Errorf("enabling totp: %w", err)
	}
	s.logger.InfoContext(ctx, "totp enabled", slog.String("user_id", cred.UserID))
	return nil
}

// DisableTOTP clears the secret and turns two-factor login off.
func (s *Service) DisableTOTP(ctx context.Context, id Identity) error {
	cred, err := s.creds.FindByID(ctx, id.UserID)
	if err != nil {
		return err
	}
	if err := s.creds.UpdateTOTP(ctx, cred.UserID, "", false); err != nil {
		return fmt.Errorf("disabling totp: %w", err)
	}
	s.logger.InfoContext(ctx, "totp disabled", slog.String("user_id", cred.UserID))
	return nil
}

// ChangePassword re-verifies the current password before storing a hash
// of the new one. Existing sessions, including other devices, stay valid.
func (s *Service) ChangePassword(ctx context.Context, id Identity, current, next string) error {
	if current == "" || next == "" {
		return &ValidationError{Message: "current password and new password are required"}
	}
	if err := s.ValidatePassword(next); err != nil {
		return err
	}
	cred, err := s.creds.FindByID(ctx, id.UserID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, cred.PasswordHash) {
		return fmt.Errorf("current password is incorrect: %w", ErrInvalidCredentials)
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.creds.UpdatePasswordHash(ctx, cred.UserID, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", cred.UserID))
	return nil
}

// ValidatePassword enforces the minimum password length.
func (s *Service) ValidatePassword(password string) error {
	if len([]rune(password)) < s.cfg.MinPasswordLength {
		return validationError("newPassword", "must be at least %d characters", s.cfg.MinPasswordLength)
	}
	return nil
}

// HashPassword validates and hashes a password for a new or reset account.
func (s *Service) HashPassword(password string) (string, error) {
	if err := s.ValidatePassword(password); err != nil {
		return "", err
	}
	return s.hasher.Hash(password)
}

func (s *Service) dummyDigest() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("phantom-dummy-password")
	})
	return s.dummyHash
}
