package remote

import (
	"errors"
	"fmt"

	"dapp/internal/domain"
)

// ErrNotFound is returned when the service answers 404.
var ErrNotFound = domain.ErrNotFound

// ErrUnauthorized is returned by the server for requests that are unsigned,
// badly signed or signed by someone other than the owner.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError reports a non-2xx response other than 404.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("dac service %s %s: status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("dac service %s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
