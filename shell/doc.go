// Package shell runs external commands without leaking secrets.
//
// Core types:
//   - Runner: executes a command (ExecRunner in production, MockRunner in tests)
//   - Redactor: masks registered secrets in any text
//   - Executor: runs commands through a Runner, redacting logs and errors
//
// Example usage:
//
//	red := shell.NewRedactor(token)
//	exec := shell.NewExecutor(shell.NewExecRunner(), red, logger)
//	out, err := exec.Run(ctx, "push repository", dir, "git", "push", remoteWithToken, "HEAD")
//	// err.Error() and logs show [REDACTED] in place of token
package shell
