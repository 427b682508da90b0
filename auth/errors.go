package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated is returned when a request carries no session, a
	// malformed session cookie, or a session that is unknown or expired.
	// The cause is deliberately not distinguished.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords so that callers cannot probe for valid accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidTOTP is returned when a one-time code was supplied but did
	// not verify.
	ErrInvalidTOTP = errors.New("invalid totp token")
	// ErrTOTPNotSetUp is returned when enabling two-factor authentication
	// before a secret has been generated.
	ErrTOTPNotSetUp = errors.New("totp not set up")
	// ErrForbidden is returned when an authenticated caller does not own the
	// resource it is acting on.
	ErrForbidden = errors.New("forbidden")
	// ErrCredentialNotFound is returned by a CredentialStore when no
	// account matches the lookup.
	ErrCredentialNotFound = errors.New("user not found")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
