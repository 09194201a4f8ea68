package git

import "errors"

// Git operation errors.
var (
	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrNoRemote indicates the requested remote is not configured.
	ErrNoRemote = errors.New("remote not configured")

	// ErrPushFailed indicates a push operation failed.
	ErrPushFailed = errors.New("push failed")
)
