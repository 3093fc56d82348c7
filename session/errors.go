package session

import "errors"

var (
	// ErrInvalidRefreshToken is returned when a refresh token fails verification.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrSessionExpired is returned when a verified token references a session
	// that no longer exists in the store.
	ErrSessionExpired = errors.New("session expired")
	// ErrCorruptRecord is returned when a stored session cannot be decoded.
	ErrCorruptRecord = errors.New("session record corrupt")
)
