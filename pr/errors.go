package pr

import "errors"

// ErrInvalidURL indicates a remote URL that has no org/repo path.
var ErrInvalidURL = errors.New("invalid repository URL")
