package session

import "errors"

var (
	// ErrNoContextKey is returned when a login response carries no usable
	// context key.
	ErrNoContextKey = errors.New("session: login returned no context key")

	// ErrNotConnected is returned when no session is currently held.
	ErrNotConnected = errors.New("session: not connected")
)
