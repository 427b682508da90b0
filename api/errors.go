package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jmcleod/phantom/auth"
	"github.com/jmcleod/phantom/blog"
)

const (
	maxAuthBodySize    = 4 << 10
	maxSmallBodySize   = 64 << 10
	maxArticleBodySize = 4 << 20
	maxUploadBodySize  = 32 << 20
	maxThemeBodySize   = blog.MaxThemeSize + maxSmallBodySize
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeInternalError logs err and sends a generic 500 so that internal
// details never reach the client.
func (a *API) writeInternalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.logger.ErrorContext(r.Context(), msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// mapError translates domain errors into HTTP responses.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *auth.ValidationError
	switch {
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidTOTP):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, blog.ErrNotFound),
		errors.Is(err, auth.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ve),
		errors.Is(err, auth.ErrTOTPNotSetUp),
		errors.Is(err, blog.ErrConflict):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.writeInternalError(w, r, "request failed", err)
	}
}

// decodeJSON reads a JSON body of at most limit bytes into a T. On failure
// it writes the error response and returns false.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, limit int64) (T, bool) {
	return decodeBody[T](w, r, limit, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
func decodeOptionalJSON[T any](w http.ResponseWriter, r *http.Request, limit int64) (T, bool) {
	return decodeBody[T](w, r, limit, true)
}

func decodeBody[T any](w http.ResponseWriter, r *http.Request, limit int64, optional bool) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return v, true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}
