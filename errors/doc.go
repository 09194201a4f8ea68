// Package errors turns failures into messages a build-tools user can act
// on.
//
// Classify sorts an error into a Kind using the http package's sentinels,
// typed net and TLS errors, and finally the error text. Explain wraps the
// kinds it knows about in a CLIError carrying a message and a suggestion:
//
//	if err := cmd.Execute(); err != nil {
//	    fmt.Fprintln(os.Stderr, errors.Explain(err))
//	}
//
// Configuration errors abort a command before any remote work starts:
//   - ErrUnknownProvider: an alias matched no registered provider
//   - ErrMissingCapability: the provider cannot act in the requested role
//   - ErrMissingCredential: a required credential was never supplied
//
// Messages come from an ErrorMessenger; pass WithMessenger to replace
// DefaultMessenger.
package errors
