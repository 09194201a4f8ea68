package provider

import "errors"

// Provider errors.
var (
	// ErrNotInferred indicates no provider recognised a repository URL.
	ErrNotInferred = errors.New("no provider matches url")

	// ErrNotConfigured indicates an operation on a provider whose
	// credentials were never set.
	ErrNotConfigured = errors.New("provider credentials not set")

	// ErrUnsupported indicates a provider combination the service cannot
	// serve, such as a CI service that does not build from a git host.
	ErrUnsupported = errors.New("unsupported provider combination")
)
