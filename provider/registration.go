package provider

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/randalmurphal/buildtools/config"
	buildhttp "github.com/randalmurphal/buildtools/http"
	"github.com/randalmurphal/buildtools/shell"
)

// Options are the shared collaborators handed to every constructor.
type Options struct {
	// HTTPClient is used for every API call. Nil uses a client with
	// buildhttp.DefaultTimeout.
	HTTPClient *http.Client

	Settings config.Settings

	// Executor runs git. Nil uses a default executor.
	Executor *shell.Executor

	Logger *slog.Logger
}

// WithDefaults fills nil collaborators.
func (o Options) WithDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: buildhttp.DefaultTimeout}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Executor == nil {
		o.Executor = shell.NewExecutor(nil, nil, o.Logger)
	}
	return o
}

// APIClient builds the paginated client for one provider API, applying
// the page size override from settings.
func (o Options) APIClient(cfg buildhttp.ClientConfig) *buildhttp.Client {
	o = o.WithDefaults()
	cfg.Client = o.HTTPClient
	cfg.Logger = o.Logger
	if o.Settings.PageSize > 0 {
		cfg.PageSize = o.Settings.PageSize
	}
	return buildhttp.NewClient(cfg)
}

// Registration is one entry of the provider table.
type Registration struct {
	// Name is the provider type name aliases are matched against
	// (e.g., "CircleCIProvider").
	Name string

	// Label is the short display name (e.g., "circleci").
	Label string

	// Capabilities lists the roles the provider fills.
	Capabilities []Capability

	// Infer reports whether a repository URL belongs to the provider. Nil
	// means the provider is never inferred.
	Infer func(url string) bool

	New func(Options) (Provider, error)
}

// Has reports whether the registration declares c.
func (r Registration) Has(c Capability) bool {
	return c == CapabilityAny || slices.Contains(r.Capabilities, c)
}

// CapabilityNames returns the declared capabilities as short names.
func (r Registration) CapabilityNames() []string {
	names := make([]string, len(r.Capabilities))
	for i, c := range r.Capabilities {
		names[i] = c.String()
	}
	return names
}

// HostMatcher returns an Infer func matching URLs that mention host.
func HostMatcher(host string) func(string) bool {
	return func(url string) bool {
		return strings.Contains(strings.ToLower(url), host)
	}
}
