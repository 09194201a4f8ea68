package errors

import "errors"

// Common CLI errors with actionable guidance.
var (
	// ErrNotAuthenticated indicates a provider rejected the credentials.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrPermissionDenied indicates the credentials lack a required scope.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimited indicates the provider throttled the requests.
	ErrRateLimited = errors.New("rate limited")

	// ErrConnectionFailed indicates the provider API is unreachable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrNotInGitRepo indicates the command requires a git repository.
	ErrNotInGitRepo = errors.New("not in a git repository")

	// ErrUnknownProvider indicates an alias that resolves to no provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMissingCapability indicates a provider that cannot serve the
	// requested role (git, ci or site).
	ErrMissingCapability = errors.New("provider lacks capability")

	// ErrMissingCredential indicates a required credential was never
	// supplied.
	ErrMissingCredential = errors.New("missing credential")
)
