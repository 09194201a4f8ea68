package shell

import (
	"context"
	"log/slog"
	"strings"
)

// Executor runs commands and keeps secrets out of logs and errors.
type Executor struct {
	runner   Runner
	redactor *Redactor
	logger   *slog.Logger
}

// NewExecutor creates an Executor. A nil runner uses ExecRunner; a nil
// redactor masks nothing.
func NewExecutor(runner Runner, redactor *Redactor, logger *slog.Logger) *Executor {
	if runner == nil {
		runner = NewExecRunner()
	}
	if redactor == nil {
		redactor = NewRedactor()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{runner: runner, redactor: redactor, logger: logger}
}

// Redactor returns the executor's redactor.
func (e *Executor) Redactor() *Redactor {
	return e.redactor
}

// Run executes name with args in dir. Failures are returned as *Error.
func (e *Executor) Run(ctx context.Context, op, dir, name string, args ...string) (string, error) {
	cmdline := e.redactor.Redact(strings.Join(append([]string{name}, args...), " "))
	e.logger.Debug("running command", "op", op, "cmd", cmdline, "dir", dir)

	out, err := e.runner.Run(ctx, dir, name, args...)
	if err != nil {
		return "", &Error{
			Op:     op,
			Cmd:    cmdline,
			Output: e.redactor.Redact(out),
			Err:    err,
		}
	}
	return out, nil
}
