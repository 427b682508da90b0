package blog

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jmcleod/phantom/auth"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique name or custom URL is taken.
	ErrConflict = errors.New("already exists")
)

// notFound maps gorm.ErrRecordNotFound to ErrNotFound and passes other
// errors through.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func invalid(field, message string) error {
	return &auth.ValidationError{Field: field, Message: message}
}
