package session

import "errors"

var (
	// ErrNotFound is returned when a session ID is unknown or its lifetime has elapsed.
	// Expired and unknown sessions are deliberately indistinguishable.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidUserID is returned when a session is requested for a blank user ID.
	ErrInvalidUserID = errors.New("user ID is required")

	// ErrInvalidSessionID is returned when a lookup is attempted with a blank session ID.
	ErrInvalidSessionID = errors.New("session ID is required")
)

// IsAbsent reports whether err means "no session" rather than a store failure.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidSessionID) ||
		errors.Is(err, ErrInvalidUserID)
}
