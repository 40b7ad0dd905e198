package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches responses with status 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound matches responses with status 404.
	ErrNotFound = errors.New("not found")
	// ErrNoImage is returned by GetTicketImage when the ticket has no photo.
	ErrNoImage = errors.New("ticket has no image")
	// ErrValidation wraps client-side input check failures.
	ErrValidation = errors.New("invalid input")
)

// Error is a non-2xx response from the backend. Message carries the
// backend's "msg" field when the body had one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %d", e.Status)
	}
	return fmt.Sprintf("server error: %d: %s", e.Status, e.Message)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}
