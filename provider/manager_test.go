package provider

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	"github.com/randalmurphal/buildtools/multidev"
	"github.com/randalmurphal/buildtools/pr"
	"github.com/randalmurphal/buildtools/state"
	"github.com/randalmurphal/buildtools/workflow"
)

type fakeGit struct {
	token string
}

func (f *fakeGit) ServiceName() string { return "fakegit" }
func (f *fakeGit) TokenKey() string    { return "FAKEGIT_TOKEN" }
func (f *fakeGit) Environment() *state.RepositoryEnvironment {
	return state.NewRepositoryEnvironment("fakegit", "FAKEGIT_TOKEN")
}
func (f *fakeGit) AuthenticatedUser(context.Context) (string, error) { return "me", nil }
func (f *fakeGit) CreateRepository(_ context.Context, org, name string) (string, error) {
	return pr.Project(org, name), nil
}
func (f *fakeGit) PushRepository(context.Context, string, string, string) error { return nil }
func (f *fakeGit) DeleteRepository(context.Context, string) error               { return nil }
func (f *fakeGit) ProjectURL(id string) string                                  { return "https://fake/" + id }
func (f *fakeGit) ListPullRequests(context.Context, string, pr.State, pr.PageFunc) error {
	return nil
}

func (f *fakeGit) CredentialRequests() []*credential.Request {
	return []*credential.Request{credential.NewRequest("fakegit-token")}
}

func (f *fakeGit) SetCredentials(src credential.Source) error {
	f.token = src.Fetch("fakegit-token")
	return nil
}

type fakeCI struct{ name string }

func (f *fakeCI) ServiceName() string                               { return f.name }
func (f *fakeCI) ConfigureServer(context.Context, CIContext) error { return nil }
func (f *fakeCI) StartTesting(context.Context, CIContext) error    { return nil }

type fakeSite struct{}

func (fakeSite) ServiceName() string                     { return "fakesite" }
func (fakeSite) Environment() *state.SiteEnvironment     { return state.NewSiteEnvironment("fakesite") }
func (fakeSite) Workflows(string) workflow.Lister        { return nil }
func (fakeSite) AddSSHKey(context.Context, string) error { return nil }
func (fakeSite) ListEnvironments(context.Context, string) ([]multidev.Environment, error) {
	return nil, nil
}
func (fakeSite) DeleteEnvironment(context.Context, string, string) (workflow.Record, error) {
	return workflow.Record{}, nil
}

// liar declares CI but implements nothing beyond Provider.
type liar struct{}

func (liar) ServiceName() string { return "liar" }

func testRegistrations() []Registration {
	return []Registration{
		{
			Name: "GitHubProvider", Label: "github",
			Capabilities: []Capability{CapabilityGit},
			Infer:        HostMatcher("github"),
			New:          func(Options) (Provider, error) { return &fakeGit{}, nil },
		},
		{
			Name: "GitHubActionsProvider", Label: "github-actions",
			Capabilities: []Capability{CapabilityCI},
			New:          func(Options) (Provider, error) { return &fakeCI{name: "github-actions"}, nil },
		},
		{
			Name: "CircleCIProvider", Label: "circleci",
			Capabilities: []Capability{CapabilityCI},
			New:          func(Options) (Provider, error) { return &fakeCI{name: "circleci"}, nil },
		},
		{
			Name: "PantheonProvider", Label: "pantheon",
			Capabilities: []Capability{CapabilitySite},
			New:          func(Options) (Provider, error) { return fakeSite{}, nil },
		},
		{
			Name: "LiarCIProvider", Label: "liar",
			Capabilities: []Capability{CapabilityCI},
			New:          func(Options) (Provider, error) { return liar{}, nil },
		},
		{
			Name: "BrokenProvider", Label: "broken",
			New: func(Options) (Provider, error) { return nil, errors.New("boom") },
		},
	}
}

func newTestManager(creds *credential.Manager) *Manager {
	return NewManager(ManagerConfig{
		Registrations: testRegistrations(),
		Credentials:   creds,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestManager_ResolveAlias(t *testing.T) {
	m := newTestManager(nil)

	tests := []struct {
		alias string
		cap   Capability
		want  string
	}{
		{"circle", CapabilityAny, "CircleCIProvider"},
		{"CIRCLE", CapabilityCI, "CircleCIProvider"},
		{"circleci", CapabilityAny, "CircleCIProvider"},
		{"CircleCIProvider", CapabilityAny, "CircleCIProvider"},
		{"github", CapabilityAny, "GitHubProvider"},
		{"Actions", CapabilityAny, "GitHubActionsProvider"},
		{"panth", CapabilitySite, "PantheonProvider"},
		// Ambiguous input narrowed by capability.
		{"hub", CapabilityCI, "GitHubActionsProvider"},
		{"hub", CapabilityGit, "GitHubProvider"},
		// Ambiguous or unmatched input comes back unchanged.
		{"hub", CapabilityAny, "hub"},
		{"Provider", CapabilityAny, "Provider"},
		{"travis", CapabilityCI, "travis"},
		{"", CapabilityAny, ""},
	}

	for _, tt := range tests {
		t.Run(tt.alias+"/"+tt.cap.String(), func(t *testing.T) {
			if got := m.ResolveAlias(tt.alias, tt.cap); got != tt.want {
				t.Errorf("ResolveAlias(%q, %s) = %q, want %q", tt.alias, tt.cap, got, tt.want)
			}
		})
	}
}

func TestManager_AvailableProviders(t *testing.T) {
	m := newTestManager(nil)

	var got []string
	for _, r := range m.AvailableProviders(CapabilityCI) {
		got = append(got, r.Name)
	}
	want := []string{"GitHubActionsProvider", "CircleCIProvider", "LiarCIProvider"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AvailableProviders(ci) mismatch (-want +got):\n%s", diff)
	}

	if n := len(m.AvailableProviders(CapabilityAny)); n != len(testRegistrations()) {
		t.Errorf("AvailableProviders(any) = %d registrations, want %d", n, len(testRegistrations()))
	}
}

func TestManager_CreateProvider(t *testing.T) {
	m := newTestManager(nil)

	p, err := m.CreateProvider("circle", CapabilityCI)
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	if p.ServiceName() != "circleci" {
		t.Errorf("ServiceName() = %q, want circleci", p.ServiceName())
	}

	t.Run("unknown alias", func(t *testing.T) {
		_, err := m.CreateProvider("travis", CapabilityCI)
		if !errors.Is(err, clierrors.ErrUnknownProvider) {
			t.Fatalf("err = %v, want ErrUnknownProvider", err)
		}
		var cliErr *clierrors.CLIError
		if !errors.As(err, &cliErr) {
			t.Fatal("expected a CLIError")
		}
	})

	t.Run("ambiguous alias is unknown", func(t *testing.T) {
		_, err := m.CreateProvider("hub", CapabilityAny)
		if !errors.Is(err, clierrors.ErrUnknownProvider) {
			t.Fatalf("err = %v, want ErrUnknownProvider", err)
		}
	})

	t.Run("wrong capability", func(t *testing.T) {
		_, err := m.CreateProvider("pantheon", CapabilityCI)
		if !errors.Is(err, clierrors.ErrMissingCapability) {
			t.Fatalf("err = %v, want ErrMissingCapability", err)
		}
	})

	t.Run("declared but not implemented", func(t *testing.T) {
		_, err := m.CreateProvider("liar", CapabilityCI)
		if !errors.Is(err, clierrors.ErrMissingCapability) {
			t.Fatalf("err = %v, want ErrMissingCapability", err)
		}
	})

	t.Run("constructor error", func(t *testing.T) {
		_, err := m.CreateProvider("broken", CapabilityAny)
		if err == nil || clierrors.IsConfigurationError(err) {
			t.Fatalf("err = %v, want constructor failure", err)
		}
	})
}

func TestManager_InferProvider(t *testing.T) {
	m := newTestManager(nil)

	p, err := m.InferProvider("git@github.com:org/repo.git", CapabilityGit)
	if err != nil {
		t.Fatalf("InferProvider: %v", err)
	}
	if _, ok := p.(GitProvider); !ok {
		t.Errorf("inferred %T, want a GitProvider", p)
	}

	if _, err := m.InferProvider("https://gitlab.com/org/repo", CapabilityGit); !errors.Is(err, ErrNotInferred) {
		t.Errorf("err = %v, want ErrNotInferred", err)
	}
	if _, err := m.InferProvider("https://github.com/org/repo", CapabilitySite); !errors.Is(err, ErrNotInferred) {
		t.Errorf("site inference err = %v, want ErrNotInferred", err)
	}
}

func TestManager_Credentials(t *testing.T) {
	env := map[string]string{}
	creds := credential.NewManager(credential.ManagerConfig{
		LookupEnv: func(k string) (string, bool) { v, ok := env[k]; return v, ok },
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	m := newTestManager(creds)

	p, err := m.CreateProvider("github", CapabilityGit)
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	ci, err := m.CreateProvider("circle", CapabilityCI)
	if err != nil {
		t.Fatalf("CreateProvider: %v", err)
	}
	m.InitializeProvider(p)
	m.InitializeProvider(ci)

	if _, ok := creds.Request("fakegit-token"); !ok {
		t.Fatal("expected fakegit-token to be registered")
	}
	if got := len(m.Initialized()); got != 2 {
		t.Errorf("Initialized() = %d providers, want 2", got)
	}

	err = m.ValidateCredentials()
	if !errors.Is(err, clierrors.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
	if !clierrors.IsConfigurationError(err) {
		t.Error("missing credential should be a configuration error")
	}

	if err := creds.Store("fakegit-token", " tok "); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := m.ValidateCredentials(); err != nil {
		t.Fatalf("ValidateCredentials: %v", err)
	}
	if got := p.(*fakeGit).token; got != "tok" {
		t.Errorf("token = %q, want tok", got)
	}
}

func TestImplements(t *testing.T) {
	tests := []struct {
		name string
		p    Provider
		cap  Capability
		want bool
	}{
		{"git as git", &fakeGit{}, CapabilityGit, true},
		{"git as ci", &fakeGit{}, CapabilityCI, false},
		{"ci as ci", &fakeCI{}, CapabilityCI, true},
		{"site as site", fakeSite{}, CapabilitySite, true},
		{"site as git", fakeSite{}, CapabilityGit, false},
		{"any", liar{}, CapabilityAny, true},
		{"nil any", nil, CapabilityAny, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Implements(tt.p, tt.cap); got != tt.want {
				t.Errorf("Implements() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCapability(t *testing.T) {
	for _, c := range []Capability{CapabilityAny, CapabilityGit, CapabilityCI, CapabilitySite} {
		got, ok := ParseCapability(c.String())
		if !ok || got != c {
			t.Errorf("ParseCapability(%q) = %v, %v", c.String(), got, ok)
		}
	}
	if _, ok := ParseCapability("cd"); ok {
		t.Error("ParseCapability(cd) should fail")
	}
}
