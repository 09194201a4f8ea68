// Package credential collects the secrets providers need.
//
// Providers declare what they need as Requests. A Manager resolves each
// request from, in order:
//
//  1. values already held for this run (including CLI options)
//  2. the environment variable derived from the request id
//  3. the persistent cache for the current user
//  4. an interactive prompt
//
// Cached values are re-validated before use, so a revoked token is asked
// for again instead of being reused:
//
//	mgr := credential.NewManager(credential.ManagerConfig{
//	    UserID:    "me@example.com",
//	    Store:     credential.NewFileStore(path),
//	    LookupEnv: env.Lookup,
//	})
//	mgr.AddRequest(credential.NewRequest("github-token",
//	    credential.WithPrompt("GitHub personal access token"),
//	    credential.WithValidator(checkToken),
//	))
//	if err := mgr.Ask(ctx, credential.NewTerminalConsole(os.Stdin, os.Stderr)); err != nil {
//	    return err
//	}
//
// Nothing is persisted when UserID is empty.
package credential
