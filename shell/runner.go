package shell

import (
	"context"
	"os/exec"
	"strings"
)

// Runner executes a command in dir and returns its trimmed combined output.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Env, when set, replaces the inherited environment.
	Env []string
}

// NewExecRunner creates an ExecRunner that inherits the environment.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
