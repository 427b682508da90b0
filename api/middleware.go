package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jmcleod/phantom/auth"
)

// RequireAuth resolves the session cookie and stores the caller's identity
// on the request context. Requests without a valid session get a 401, and
// a stale cookie is cleared.
func (a *API) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.auth.Resolve(r)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthenticated) {
				a.writeInternalError(w, r, "resolving session", err)
				return
			}
			if _, ok := a.auth.Cookies().Read(r); ok {
				a.auth.Cookies().Clear(w)
			}
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), id)))
	})
}

// identity returns the caller set by RequireAuth.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFromContext(r.Context())
	return id
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
