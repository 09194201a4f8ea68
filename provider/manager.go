package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Registrations is the provider table, usually registry.Default().
	Registrations []Registration

	// Credentials receives the requests of initialized providers. Nil uses
	// a manager with no environment, cache or options.
	Credentials *credential.Manager

	// Options are passed to every constructor.
	Options Options

	Logger *slog.Logger
}

// Manager selects providers from the registration table and wires their
// credentials.
type Manager struct {
	registrations []Registration
	credentials   *credential.Manager
	opts          Options
	initialized   []Provider
	fold          cases.Caser
	logger        *slog.Logger
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	creds := cfg.Credentials
	if creds == nil {
		creds = credential.NewManager(credential.ManagerConfig{Logger: logger})
	}
	opts := cfg.Options
	if opts.Logger == nil {
		opts.Logger = logger
	}
	return &Manager{
		registrations: cfg.Registrations,
		credentials:   creds,
		opts:          opts.WithDefaults(),
		fold:          cases.Fold(),
		logger:        logger,
	}
}

// AvailableProviders returns the registrations that fill c, in table
// order. CapabilityAny returns every registration.
func (m *Manager) AvailableProviders(c Capability) []Registration {
	var out []Registration
	for _, r := range m.registrations {
		if r.Has(c) {
			out = append(out, r)
		}
	}
	return out
}

// ResolveAlias maps a short case-insensitive alias to a provider type name.
//
// A name or label equal to alias wins outright. Otherwise alias must be a
// substring of exactly one type name; when several names match, those
// declaring c are preferred. Ambiguous or unmatched aliases are returned
// unchanged, so the caller's lookup fails with the user's own input.
func (m *Manager) ResolveAlias(alias string, c Capability) string {
	want := m.fold.String(strings.TrimSpace(alias))
	if want == "" {
		return alias
	}

	var matches []Registration
	for _, r := range m.registrations {
		if m.fold.String(r.Name) == want || m.fold.String(r.Label) == want {
			return r.Name
		}
		if strings.Contains(m.fold.String(r.Name), want) {
			matches = append(matches, r)
		}
	}

	if len(matches) > 1 && c != CapabilityAny {
		var capable []Registration
		for _, r := range matches {
			if r.Has(c) {
				capable = append(capable, r)
			}
		}
		matches = capable
	}
	if len(matches) != 1 {
		return alias
	}
	return matches[0].Name
}

func (m *Manager) lookup(name string) (Registration, bool) {
	for _, r := range m.registrations {
		if r.Name == name {
			return r, true
		}
	}
	return Registration{}, false
}

func (m *Manager) names(c Capability) []string {
	var names []string
	for _, r := range m.AvailableProviders(c) {
		names = append(names, r.Label)
	}
	return names
}

// CreateProvider resolves alias, instantiates the provider and checks that
// it fills c. Unknown aliases and missing capabilities are returned as
// *errors.CLIError configuration errors.
func (m *Manager) CreateProvider(alias string, c Capability) (Provider, error) {
	name := m.ResolveAlias(alias, c)
	reg, ok := m.lookup(name)
	if !ok {
		return nil, clierrors.NewUnknownProviderError(alias, m.names(c))
	}
	return m.instantiate(reg, c)
}

func (m *Manager) instantiate(reg Registration, c Capability) (Provider, error) {
	p, err := reg.New(m.opts)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", reg.Name, err)
	}
	if !Implements(p, c) {
		return nil, clierrors.NewMissingCapabilityError(reg.Name, c.String())
	}
	m.logger.Debug("provider created", "provider", reg.Name, "capability", c.String())
	return p, nil
}

// InferProvider returns the first provider filling c whose Infer matches
// url. It fails with ErrNotInferred when none does.
func (m *Manager) InferProvider(url string, c Capability) (Provider, error) {
	for _, reg := range m.AvailableProviders(c) {
		if reg.Infer == nil || !reg.Infer(url) {
			continue
		}
		return m.instantiate(reg, c)
	}
	return nil, fmt.Errorf("%w for %s providers", ErrNotInferred, c)
}

// InitializeProvider registers p's credential requests. Providers without
// credentials are tracked but need nothing.
func (m *Manager) InitializeProvider(p Provider) {
	m.initialized = append(m.initialized, p)
	client, ok := p.(CredentialClient)
	if !ok {
		return
	}
	for _, r := range client.CredentialRequests() {
		m.credentials.AddRequest(r)
	}
}

// Initialized returns the providers passed to InitializeProvider.
func (m *Manager) Initialized() []Provider {
	return append([]Provider(nil), m.initialized...)
}

// ValidateCredentials hands the resolved credentials to every initialized
// provider. A required credential that is still absent is a configuration
// error.
func (m *Manager) ValidateCredentials() error {
	for _, p := range m.initialized {
		client, ok := p.(CredentialClient)
		if !ok {
			continue
		}
		for _, r := range client.CredentialRequests() {
			if err := m.checkPresent(r); err != nil {
				return err
			}
		}
		if err := client.SetCredentials(m.credentials); err != nil {
			return fmt.Errorf("%s credentials: %w", p.ServiceName(), err)
		}
	}
	return nil
}

func (m *Manager) checkPresent(r *credential.Request) error {
	for _, dep := range r.Dependents {
		if err := m.checkPresent(dep); err != nil {
			return err
		}
	}
	if r.Required && m.credentials.Fetch(r.ID) == "" {
		return clierrors.NewMissingCredentialError(r.ID, r.EnvironmentVariable())
	}
	return nil
}
