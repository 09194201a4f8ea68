package credential

import (
	"context"
	"regexp"
	"strings"
)

// ValidateFunc checks a candidate value. deps holds the current values of
// the request's dependents, keyed by id. Validators usually make a live API
// call; a returned error is treated as "does not validate".
type ValidateFunc func(ctx context.Context, value string, deps map[string]string) (bool, error)

// Request declares one credential a provider needs.
type Request struct {
	// ID uniquely identifies the credential (e.g., "github-token").
	ID string

	// Prompt is shown when asking interactively.
	Prompt string

	// Instructions explain where to obtain the credential.
	Instructions string

	// FailureMessage is shown when a prompted value fails validation.
	FailureMessage string

	// Required requests are prompted for when absent.
	Required bool

	// Pattern, when set, must match the whole value.
	Pattern *regexp.Regexp

	// Validator, when set, must accept the value.
	Validator ValidateFunc

	// OptionKey is the CLI option name; defaults to ID.
	OptionKey string

	// Dependents are owned requests resolved before this one and passed to
	// Validator, such as a username paired with a password.
	Dependents []*Request
}

// RequestOption configures a Request.
type RequestOption func(*Request)

// NewRequest creates a required request for id.
func NewRequest(id string, opts ...RequestOption) *Request {
	r := &Request{ID: id, Required: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithPrompt sets the interactive prompt.
func WithPrompt(prompt string) RequestOption {
	return func(r *Request) { r.Prompt = prompt }
}

// WithInstructions sets the help text printed before prompting.
func WithInstructions(text string) RequestOption {
	return func(r *Request) { r.Instructions = text }
}

// WithFailureMessage sets the text printed when validation fails.
func WithFailureMessage(msg string) RequestOption {
	return func(r *Request) { r.FailureMessage = msg }
}

// Optional marks the request as not required.
func Optional() RequestOption {
	return func(r *Request) { r.Required = false }
}

// WithPattern requires values to match expr in full.
func WithPattern(expr string) RequestOption {
	return func(r *Request) { r.Pattern = regexp.MustCompile(`^(?:` + expr + `)$`) }
}

// WithValidator sets the validation callback.
func WithValidator(fn ValidateFunc) RequestOption {
	return func(r *Request) { r.Validator = fn }
}

// WithOptionKey overrides the CLI option name.
func WithOptionKey(key string) RequestOption {
	return func(r *Request) { r.OptionKey = key }
}

// WithDependents attaches dependent requests.
func WithDependents(deps ...*Request) RequestOption {
	return func(r *Request) { r.Dependents = append(r.Dependents, deps...) }
}

// Key returns the CLI option name.
func (r *Request) Key() string {
	if r.OptionKey != "" {
		return r.OptionKey
	}
	return r.ID
}

// EnvironmentVariable returns the environment variable that supplies this
// credential: the id uppercased with "-" and "." replaced by "_".
func (r *Request) EnvironmentVariable() string {
	return strings.NewReplacer("-", "_", ".", "_").Replace(strings.ToUpper(r.ID))
}

// PromptText returns the prompt, falling back to the id.
func (r *Request) PromptText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	return "Enter " + r.ID
}

// Validate reports whether candidate passes both the pattern and the
// validator. A missing check passes.
func (r *Request) Validate(ctx context.Context, candidate string, deps map[string]string) bool {
	ok, _ := r.check(ctx, candidate, deps)
	return ok
}

// check is Validate with the validator's error exposed for logging.
func (r *Request) check(ctx context.Context, candidate string, deps map[string]string) (bool, error) {
	if r.Pattern != nil && !r.Pattern.MatchString(candidate) {
		return false, nil
	}
	if r.Validator == nil {
		return true, nil
	}
	ok, err := r.Validator(ctx, candidate, deps)
	if err != nil {
		return false, err
	}
	return ok, nil
}
