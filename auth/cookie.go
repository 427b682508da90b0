package auth

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultCookieName = "phantom_session"

// CookieTransport carries the session token in an HTTP cookie.
type CookieTransport struct {
	name   string
	secure bool
	maxAge time.Duration
}

// NewCookieTransport returns a transport for cookies called name that live
// for maxAge. secure adds the Secure attribute and should be set for
// production deployments served over HTTPS.
func NewCookieTransport(name string, secure bool, maxAge time.Duration) *CookieTransport {
	if name == "" {
		name = DefaultCookieName
	}
	if maxAge <= 0 {
		maxAge = DefaultSessionTTL
	}
	return &CookieTransport{name: name, secure: secure, maxAge: maxAge}
}

// Name returns the cookie name.
func (c *CookieTransport) Name() string {
	return c.name
}

// Write sets the session cookie on the response.
func (c *CookieTransport) Write(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    url.PathEscape(token),
		Path:     "/",
		MaxAge:   int(c.maxAge / time.Second),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Read extracts the session token from the request's Cookie headers.
func (c *CookieTransport) Read(r *http.Request) (string, bool) {
	return ParseCookieHeader(strings.Join(r.Header.Values("Cookie"), ";"), c.name)
}

// Clear instructs the client to drop the session cookie.
func (c *CookieTransport) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // serialized as Max-Age=0
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ParseCookieHeader finds the cookie called name in a raw Cookie header
// and returns its percent-decoded value. Pairs are separated by ';' and
// split on the first '='. Absent, empty or undecodable values yield false.
func ParseCookieHeader(header, name string) (string, bool) {
	for _, part := range strings.Split(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(k) != name {
			continue
		}
		v = strings.Trim(strings.TrimSpace(v), `"`)
		decoded, err := url.PathUnescape(v)
		if err != nil || decoded == "" {
			return "", false
		}
		return decoded, true
	}
	return "", false
}
