package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrSessionIDRequired = errors.New("session_id is required")
	ErrUserIDRequired    = errors.New("user_id is required")
)
