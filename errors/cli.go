package errors

import (
	"errors"
	"fmt"
	"strings"

	buildhttp "github.com/randalmurphal/buildtools/http"
)

// CLIError is an error with a message and a suggestion for the user.
type CLIError struct {
	Err        error
	Message    string
	Suggestion string

	// Details is the underlying error text, shown under Message.
	Details string
}

func (e *CLIError) Error() string {
	parts := []string{e.Message}
	if e.Details != "" {
		parts = append(parts, e.Details)
	}
	text := strings.Join(parts, "\n")
	if e.Suggestion != "" {
		text += "\n\n" + e.Suggestion
	}
	return text
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// ErrorMessenger supplies the message and suggestion for each failure.
// service is a provider name such as "github"; target is the API base
// that could not be reached and may be empty.
type ErrorMessenger interface {
	AuthErrorMessage(service string) (message, suggestion string)
	PermissionDeniedMessage(service string) (message, suggestion string)
	RateLimitMessage(service string) (message, suggestion string)
	ConnectionErrorMessage(target string) (message, suggestion string)
	TLSErrorMessage(target string) (message, suggestion string)
	TimeoutErrorMessage(target string) (message, suggestion string)
	NotInGitRepoMessage() (message, suggestion string)
	UnknownProviderMessage(alias string, available []string) (message, suggestion string)
	MissingCapabilityMessage(provider, capability string) (message, suggestion string)
	MissingCredentialMessage(id, envVar string) (message, suggestion string)
}

// DefaultMessenger is the build-tools wording.
type DefaultMessenger struct{}

func (DefaultMessenger) AuthErrorMessage(service string) (string, string) {
	return fmt.Sprintf("%s rejected the supplied credentials.", serviceLabel(service)),
		"Run 'build-tools credentials clear' and supply a valid token."
}

func (DefaultMessenger) PermissionDeniedMessage(service string) (string, string) {
	return fmt.Sprintf("%s denied permission for this action.", serviceLabel(service)),
		"Check that the token has the scopes this command needs."
}

func (DefaultMessenger) RateLimitMessage(service string) (string, string) {
	return fmt.Sprintf("%s is throttling requests.", serviceLabel(service)),
		"Wait a few minutes, then run the command again."
}

func (DefaultMessenger) ConnectionErrorMessage(target string) (string, string) {
	return fmt.Sprintf("Cannot reach %s.", targetLabel(target)),
		"Check the API URL setting (build-tools config show) and your network connection."
}

func (DefaultMessenger) TLSErrorMessage(target string) (string, string) {
	return fmt.Sprintf("The certificate presented by %s was not trusted.", targetLabel(target)),
		"Check the API URL setting, or install the CA that signed the server certificate."
}

func (DefaultMessenger) TimeoutErrorMessage(target string) (string, string) {
	return fmt.Sprintf("%s did not answer in time.", targetLabel(target)),
		"The service may be degraded. Try again in a moment."
}

func (DefaultMessenger) NotInGitRepoMessage() (string, string) {
	return "This command must be run from within a git repository.",
		"Run this command from a git repository or pass the provider explicitly."
}

func (DefaultMessenger) UnknownProviderMessage(alias string, available []string) (string, string) {
	msg := fmt.Sprintf("No provider matches %q.", alias)
	if len(available) == 0 {
		return msg, "Run 'build-tools providers' to list the available providers."
	}
	return msg, "Available providers: " + strings.Join(available, ", ")
}

func (DefaultMessenger) MissingCapabilityMessage(provider, capability string) (string, string) {
	return fmt.Sprintf("%s cannot be used as a %s provider.", provider, capability),
		fmt.Sprintf("Run 'build-tools providers --capability %s' to list them.", capability)
}

func (DefaultMessenger) MissingCredentialMessage(id, envVar string) (string, string) {
	return fmt.Sprintf("The credential %s is required but was not supplied.", id),
		fmt.Sprintf("Set %s, pass --%s, or run interactively to be prompted.", envVar, id)
}

func serviceLabel(service string) string {
	if service == "" {
		return "The provider"
	}
	return service
}

func targetLabel(target string) string {
	if target == "" {
		return "the provider API"
	}
	return target
}

type options struct {
	messenger ErrorMessenger
}

// Option customizes Explain and the New*Error constructors.
type Option func(*options)

// WithMessenger replaces DefaultMessenger.
func WithMessenger(m ErrorMessenger) Option {
	return func(o *options) { o.messenger = m }
}

func messengerFor(opts []Option) ErrorMessenger {
	o := options{messenger: DefaultMessenger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o.messenger
}

// Explain wraps err in a CLIError when Classify recognizes it. Other
// errors, and errors that already are CLIErrors, are returned unchanged.
// The wrapped error matches both the original and the package sentinel
// for its kind.
func Explain(err error, opts ...Option) error {
	var cliErr *CLIError
	if err == nil || errors.As(err, &cliErr) {
		return err
	}

	m := messengerFor(opts)
	service := ""
	var apiErr *buildhttp.APIError
	if errors.As(err, &apiErr) {
		service = apiErr.Service
	}
	where := target(err)

	var sentinel error
	var msg, suggestion string
	switch Classify(err) {
	case KindAuth:
		sentinel = ErrNotAuthenticated
		msg, suggestion = m.AuthErrorMessage(service)
	case KindPermission:
		sentinel = ErrPermissionDenied
		msg, suggestion = m.PermissionDeniedMessage(service)
	case KindRateLimited:
		sentinel = ErrRateLimited
		msg, suggestion = m.RateLimitMessage(service)
	case KindTLS:
		sentinel = ErrConnectionFailed
		msg, suggestion = m.TLSErrorMessage(where)
	case KindTimeout:
		sentinel = ErrConnectionFailed
		msg, suggestion = m.TimeoutErrorMessage(where)
	case KindUnreachable:
		sentinel = ErrConnectionFailed
		msg, suggestion = m.ConnectionErrorMessage(where)
	default:
		return err
	}
	return &CLIError{
		Err:        fmt.Errorf("%w: %w", sentinel, err),
		Message:    msg,
		Details:    err.Error(),
		Suggestion: suggestion,
	}
}

// NewNotInGitRepoError is returned by commands that need a repository.
func NewNotInGitRepoError(opts ...Option) error {
	msg, suggestion := messengerFor(opts).NotInGitRepoMessage()
	return &CLIError{Err: ErrNotInGitRepo, Message: msg, Suggestion: suggestion}
}

// NewUnknownProviderError reports an alias that matched no provider.
func NewUnknownProviderError(alias string, available []string, opts ...Option) error {
	msg, suggestion := messengerFor(opts).UnknownProviderMessage(alias, available)
	return &CLIError{
		Err:        fmt.Errorf("%w: %s", ErrUnknownProvider, alias),
		Message:    msg,
		Suggestion: suggestion,
	}
}

// NewMissingCapabilityError reports a provider used in a role it does not
// implement.
func NewMissingCapabilityError(provider, capability string, opts ...Option) error {
	msg, suggestion := messengerFor(opts).MissingCapabilityMessage(provider, capability)
	return &CLIError{
		Err:        fmt.Errorf("%w: %s is not a %s provider", ErrMissingCapability, provider, capability),
		Message:    msg,
		Suggestion: suggestion,
	}
}

// NewMissingCredentialError reports a required credential that was never
// supplied.
func NewMissingCredentialError(id, envVar string, opts ...Option) error {
	msg, suggestion := messengerFor(opts).MissingCredentialMessage(id, envVar)
	return &CLIError{
		Err:        fmt.Errorf("%w: %s", ErrMissingCredential, id),
		Message:    msg,
		Suggestion: suggestion,
	}
}
