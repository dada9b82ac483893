package engine

import "errors"

var (
	// ErrUnknownRoom is returned when an event names a room that is not in
	// the directory.
	ErrUnknownRoom = errors.New("unknown room")

	// ErrNotFound is returned when a connection or message id cannot be
	// resolved.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateConnection is returned when a connection id is registered
	// twice. The transport hands out fresh ids per socket, so this is a
	// defensive check only.
	ErrDuplicateConnection = errors.New("connection already registered")

	// ErrValidation is returned for missing/empty usernames or message text.
	ErrValidation = errors.New("validation failed")
)
