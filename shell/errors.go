package shell

// Error wraps a failed command with context. Cmd and Output are redacted.
type Error struct {
	Op     string // Operation that failed (e.g., "push repository")
	Cmd    string // Command line that was run
	Output string // Combined stdout/stderr output
	Err    error  // Underlying error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return e.Op + ": " + e.Output
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
