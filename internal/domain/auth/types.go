package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"strings"
	"time"
)

// Session is the server-side record linking an opaque session ID to a user.
// CreatedAt is stamped once when the session is issued and never changes.
type Session struct {
	ID        string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiresAt returns the instant the session stops being valid for the given lifetime.
// ok is false when the session never expires (non-positive lifetime or no creation time).
func (s Session) ExpiresAt(lifetime time.Duration) (time.Time, bool) {
	if lifetime <= 0 || s.CreatedAt.IsZero() {
		return time.Time{}, false
	}
	return s.CreatedAt.Add(lifetime), true
}

// ExpiredAt reports whether the session is no longer valid at now.
// A session created at t0 with lifetime D is valid for now < t0+D.
func (s Session) ExpiredAt(now time.Time, lifetime time.Duration) bool {
	exp, ok := s.ExpiresAt(lifetime)
	if !ok {
		return false
	}
	return !now.Before(exp)
}

// CompareSessions orders sessions by creation time, then by ID.
// It is suitable for slices.SortFunc.
func CompareSessions(a, b Session) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// User is the read-only projection of a user record the auth layer resolves sessions to.
type User struct {
	ID        string    `json:"id"         db:"id"`
	Email     string    `json:"email"      db:"email"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name"  db:"last_name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the name shown for the user: full name when both parts are
// present, otherwise whichever part exists, falling back to the email.
func (u User) DisplayName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	default:
		return u.FirstName + " " + u.LastName
	}
}
