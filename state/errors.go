package state

import "errors"

// State errors.
var (
	// ErrUnknownOwner indicates a Set on an owner that was never stored.
	ErrUnknownOwner = errors.New("unknown state owner")

	// ErrInvalidKey indicates a key the environment does not accept.
	ErrInvalidKey = errors.New("invalid environment key")
)
