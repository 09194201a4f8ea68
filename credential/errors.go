package credential

import "errors"

// Credential errors.
var (
	// ErrTooManyAttempts indicates the prompt loop hit its attempt bound.
	ErrTooManyAttempts = errors.New("too many invalid attempts")

	// ErrNoChoice indicates a Choose answer matched no option.
	ErrNoChoice = errors.New("no matching option")
)
