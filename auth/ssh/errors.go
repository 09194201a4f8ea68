package ssh

import "errors"

// SSH key errors.
var (
	// ErrNoSSHKeys is returned when no SSH keys are found.
	ErrNoSSHKeys = errors.New("no SSH keys found")

	// ErrInvalidKeyFormat is returned when a public key file has invalid format.
	ErrInvalidKeyFormat = errors.New("invalid SSH public key format")

	// ErrKeyExists is returned when generating over an existing key file.
	ErrKeyExists = errors.New("SSH key already exists")
)
