package store

import "errors"

// Sentinel errors reported by the engine. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	// ErrOpen means a database could not be opened or upgraded. This is
	// fatal for the session: retrying immediately would hit the same
	// denial or the same version conflict.
	ErrOpen = errors.New("store: database cannot be opened")

	// ErrConstraint means a write violated a key constraint, e.g. an
	// insert at an id that is already taken.
	ErrConstraint = errors.New("store: key constraint violated")

	// ErrReadOnly means a write was attempted inside a read-only
	// transaction.
	ErrReadOnly = errors.New("store: write inside a read-only transaction")

	// ErrUnknownCollection means a collection was used without being
	// declared, either at upgrade time or in the transaction scope.
	ErrUnknownCollection = errors.New("store: unknown collection")
)
