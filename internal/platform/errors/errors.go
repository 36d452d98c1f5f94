package apperrors

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrNoActiveSession  = errors.New("no active session")
	ErrSessionNotActive = errors.New("session is not active")
	ErrSessionNotPaused = errors.New("session is not paused")
	ErrPlayerClosed     = errors.New("player is closed")
)
