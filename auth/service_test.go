package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeCredentials struct {
	mu    sync.Mutex
	users map[string]*Credential
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{users: make(map[string]*Credential)}
}

func (f *fakeCredentials) add(c Credential) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[c.UserID] = &c
}

func (f *fakeCredentials) get(id string) Credential {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.users[id]
}

func (f *fakeCredentials) FindByUsername(_ context.Context, username string) (*Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.users {
		if c.Username == username {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrCredentialNotFound
}

func (f *fakeCredentials) FindByID(_ context.Context, id string) (*Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.users[id]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCredentials) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.users[id]
	if !ok {
		return ErrCredentialNotFound
	}
	c.PasswordHash = hash
	return nil
}

func (f *fakeCredentials) UpdateTOTP(_ context.Context, id, secret string, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.users[id]
	if !ok {
		return ErrCredentialNotFound
	}
	c.TOTPSecret = secret
	c.TOTPEnabled = enabled
	return nil
}

type serviceFixture struct {
	svc      *Service
	creds    *fakeCredentials
	sessions *MemorySessionStore
	clock    *fakeClock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	clock := newFakeClock()
	creds := newFakeCredentials()
	sessions := NewMemorySessionStore(WithSessionClock(clock.Now), WithCleanupInterval(0))
	t.Cleanup(sessions.Close)

	cfg := DefaultConfig()
	cfg.BcryptCost = bcrypt.MinCost
	svc := NewService(creds, sessions, cfg,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(clock.Now))

	hash, err := svc.HashPassword("secret123")
	require.NoError(t, err)
	creds.add(Credential{UserID: "u1", Username: "alice", PasswordHash: hash})
	return &serviceFixture{svc: svc, creds: creds, sessions: sessions, clock: clock}
}

// requestWithCookies returns a request carrying the cookies set on rec.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestLoginWithoutTOTP(t *testing.T) {
	f := newServiceFixture(t)
	rec := httptest.NewRecorder()

	res, err := f.svc.Login(context.Background(), rec, LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.False(t, res.RequireTOTP)
	assert.Equal(t, User{ID: "u1", Username: "alice"}, res.User)
	assert.Equal(t, 1, f.sessions.Len())

	id, err := f.svc.Resolve(requestWithCookies(rec))
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
}

func TestLoginInvalidCredentialsIndistinguishable(t *testing.T) {
	f := newServiceFixture(t)

	_, errUnknown := f.svc.Login(context.Background(), httptest.NewRecorder(), LoginRequest{Username: "mallory", Password: "secret123"})
	_, errWrong := f.svc.Login(context.Background(), httptest.NewRecorder(), LoginRequest{Username: "alice", Password: "wrong"})

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	assert.Equal(t, 0, f.sessions.Len())
}

func TestLoginRequiresFields(t *testing.T) {
	f := newServiceFixture(t)
	for _, req := range []LoginRequest{{}, {Username: "alice"}, {Password: "secret123"}} {
		_, err := f.svc.Login(context.Background(), httptest.NewRecorder(), req)
		assert.True(t, IsValidation(err), "%+v", req)
	}
}

func TestLoginTOTPFlow(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	me := Identity{UserID: "u1"}

	setup, err := f.svc.SetupTOTP(ctx, me)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(setup.QRCode, "data:image/png;base64,"))
	assert.Contains(t, setup.OtpauthURL, "secret="+setup.Secret)

	// A pending secret does not gate login.
	_, err = f.svc.Login(ctx, httptest.NewRecorder(), LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	code, err := CodeAt(setup.Secret, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.svc.EnableTOTP(ctx, me, code))
	assert.True(t, f.creds.get("u1").TOTPEnabled)

	before := f.sessions.Len()

	rec := httptest.NewRecorder()
	res, err := f.svc.Login(ctx, rec, LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.True(t, res.RequireTOTP)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
	assert.Equal(t, before, f.sessions.Len())

	_, err = f.svc.Login(ctx, httptest.NewRecorder(), LoginRequest{Username: "alice", Password: "secret123", TOTPCode: "000000"})
	if !inWindow(t, setup.Secret, "000000", f.clock.Now()) {
		require.ErrorIs(t, err, ErrInvalidTOTP)
	}

	// A wrong password with a valid code is still a credential failure.
	_, err = f.svc.Login(ctx, httptest.NewRecorder(), LoginRequest{Username: "alice", Password: "nope", TOTPCode: code})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	rec = httptest.NewRecorder()
	res, err = f.svc.Login(ctx, rec, LoginRequest{Username: "alice", Password: "secret123", TOTPCode: code})
	require.NoError(t, err)
	assert.False(t, res.RequireTOTP)
	assert.Equal(t, "alice", res.User.Username)
	_, err = f.svc.Resolve(requestWithCookies(rec))
	require.NoError(t, err)
}

func TestEnableTOTPErrors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	me := Identity{UserID: "u1"}

	assert.True(t, IsValidation(f.svc.EnableTOTP(ctx, me, "")))
	assert.ErrorIs(t, f.svc.EnableTOTP(ctx, me, "123456"), ErrTOTPNotSetUp)

	setup, err := f.svc.SetupTOTP(ctx, me)
	require.NoError(t, err)
	code, err := CodeAt(setup.Secret, f.clock.Now().Add(10*time.Minute))
	require.NoError(t, err)
	if !inWindow(t, setup.Secret, code, f.clock.Now()) {
		assert.ErrorIs(t, f.svc.EnableTOTP(ctx, me, code), ErrInvalidTOTP)
	}
	assert.False(t, f.creds.get("u1").TOTPEnabled)

	_, err = f.svc.SetupTOTP(ctx, Identity{UserID: "ghost"})
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestSetupTOTPResetsEnabledFlag(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	me := Identity{UserID: "u1"}

	first, err := f.svc.SetupTOTP(ctx, me)
	require.NoError(t, err)
	code, err := CodeAt(first.Secret, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.svc.EnableTOTP(ctx, me, code))

	second, err := f.svc.SetupTOTP(ctx, me)
	require.NoError(t, err)
	assert.NotEqual(t, first.Secret, second.Secret)
	stored := f.creds.get("u1")
	assert.Equal(t, second.Secret, stored.TOTPSecret)
	assert.False(t, stored.TOTPEnabled)
}

func TestDisableTOTP(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	me := Identity{UserID: "u1"}

	setup, err := f.svc.SetupTOTP(ctx, me)
	require.NoError(t, err)
	code, err := CodeAt(setup.Secret, f.clock.Now())
	require.NoError(t, err)
	require.NoError(t, f.svc.EnableTOTP(ctx, me, code))

	require.NoError(t, f.svc.DisableTOTP(ctx, me))
	stored := f.creds.get("u1")
	assert.Empty(t, stored.TOTPSecret)
	assert.False(t, stored.TOTPEnabled)

	res, err := f.svc.Login(ctx, httptest.NewRecorder(), LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.False(t, res.RequireTOTP)
}

func TestResolve(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Resolve(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrUnauthenticated)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Cookie", "phantom_session=forged")
	_, err = f.svc.Resolve(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	rec := httptest.NewRecorder()
	_, err = f.svc.Login(context.Background(), rec, LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	f.clock.Advance(DefaultSessionTTL)
	_, err = f.svc.Resolve(requestWithCookies(rec))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLogout(t *testing.T) {
	f := newServiceFixture(t)
	rec := httptest.NewRecorder()
	_, err := f.svc.Login(context.Background(), rec, LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	req := requestWithCookies(rec)

	out := httptest.NewRecorder()
	f.svc.Logout(out, req)
	assert.Contains(t, out.Header().Get("Set-Cookie"), "Max-Age=0")

	_, err = f.svc.Resolve(req)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// Logging out without a session still clears the cookie.
	out = httptest.NewRecorder()
	f.svc.Logout(out, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Contains(t, out.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestChangePassword(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	me := Identity{UserID: "u1"}

	rec := httptest.NewRecorder()
	_, err := f.svc.Login(ctx, rec, LoginRequest{Username: "alice", Password: "secret123"})
	require.NoError(t, err)

	assert.True(t, IsValidation(f.svc.ChangePassword(ctx, me, "", "newsecret1")))
	assert.True(t, IsValidation(f.svc.ChangePassword(ctx, me, "secret123", "short")))

	err = f.svc.ChangePassword(ctx, me, "wrong", "newsecret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "current password is incorrect")

	require.NoError(t, f.svc.ChangePassword(ctx, me, "secret123", "newsecret1"))

	_, err = f.svc.Login(ctx, httptest.NewRecorder(), LoginRequest{Username: "alice", Password: "secret123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, httptest.NewRecorder(), LoginRequest{Username: "alice", Password: "newsecret1"})
	assert.NoError(t, err)

	// Existing sessions are not revoked.
	_, err = f.svc.Resolve(requestWithCookies(rec))
	assert.NoError(t, err)
}

func TestLoginStoreFailure(t *testing.T) {
	sessions := NewMemorySessionStore(WithCleanupInterval(0))
	defer sessions.Close()
	svc := NewService(failingCredentials{}, sessions, DefaultConfig(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := svc.Login(context.Background(), httptest.NewRecorder(), LoginRequest{Username: "a", Password: "b"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
}

type failingCredentials struct{}

var errStoreDown = errors.New("store down")

func (failingCredentials) FindByUsername(context.Context, string) (*Credential, error) {
	return nil, errStoreDown
}
func (failingCredentials) FindByID(context.Context, string) (*Credential, error) {
	return nil, errStoreDown
}
func (failingCredentials) UpdatePasswordHash(context.Context, string, string) error {
	return errStoreDown
}
func (failingCredentials) UpdateTOTP(context.Context, string, string, bool) error {
	return errStoreDown
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithIdentity(context.Background(), Identity{UserID: "u1"})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", id.UserID)
}

func TestZeroConfigTakesDefaults(t *testing.T) {
	clock := newFakeClock()
	creds := newFakeCredentials()
	sessions := NewMemorySessionStore(WithSessionClock(clock.Now), WithCleanupInterval(0), WithSessionTTL(time.Hour))
	t.Cleanup(sessions.Close)
	svc := NewService(creds, sessions, Config{BcryptCost: bcrypt.MinCost},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(clock.Now))

	const secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	hash, err := svc.HashPassword("secret123")
	require.NoError(t, err)
	creds.add(Credential{UserID: "u1", Username: "alice", PasswordHash: hash, TOTPSecret: secret, TOTPEnabled: true})

	// A code from the previous step is inside the default window.
	code, err := CodeAt(secret, clock.Now().Add(-30*time.Second))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	_, err = svc.Login(context.Background(), rec, LoginRequest{Username: "alice", Password: "secret123", TOTPCode: code})
	require.NoError(t, err)

	// The cookie lives exactly as long as the server-side session.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.Equal(t, int(time.Hour/time.Second), cookies[0].MaxAge)
	assert.Equal(t, time.Hour, sessions.TTL())

	err = svc.ChangePassword(context.Background(), Identity{UserID: "u1"}, "secret123", "short")
	assert.True(t, IsValidation(err))
}
