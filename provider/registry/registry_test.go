package registry

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	clierrors "github.com/randalmurphal/buildtools/errors"
	"github.com/randalmurphal/buildtools/provider"
)

func newManager() *provider.Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return provider.NewManager(provider.ManagerConfig{
		Registrations: Default(),
		Options:       provider.Options{Logger: logger},
		Logger:        logger,
	})
}

func TestDefault_Constructs(t *testing.T) {
	for _, reg := range Default() {
		t.Run(reg.Name, func(t *testing.T) {
			p, err := reg.New(provider.Options{})
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if p.ServiceName() != reg.Label {
				t.Errorf("ServiceName() = %q, want label %q", p.ServiceName(), reg.Label)
			}
			for _, c := range reg.Capabilities {
				if !provider.Implements(p, c) {
					t.Errorf("%s declares %s but does not implement it", reg.Name, c)
				}
			}
			if _, ok := p.(provider.CredentialClient); !ok {
				t.Errorf("%s requests no credentials", reg.Name)
			}
		})
	}
}

func TestDefault_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, reg := range Default() {
		for _, key := range []string{reg.Name, reg.Label} {
			if seen[key] {
				t.Errorf("duplicate registration key %q", key)
			}
			seen[key] = true
		}
	}
}

func TestAvailableProviders(t *testing.T) {
	m := newManager()
	tests := []struct {
		capability provider.Capability
		want       []string
	}{
		{provider.CapabilityGit, []string{"github", "gitlab", "bitbucket"}},
		{provider.CapabilityCI, []string{"github-actions", "gitlab-ci", "circleci"}},
		{provider.CapabilitySite, []string{"pantheon"}},
	}
	for _, tt := range tests {
		t.Run(tt.capability.String(), func(t *testing.T) {
			var got []string
			for _, reg := range m.AvailableProviders(tt.capability) {
				got = append(got, reg.Label)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AvailableProviders() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveAlias(t *testing.T) {
	m := newManager()
	tests := []struct {
		alias      string
		capability provider.Capability
		want       string
	}{
		{"github", provider.CapabilityGit, "GitHubProvider"},
		{"GitHub-Actions", provider.CapabilityCI, "GitHubActionsProvider"},
		{"actions", provider.CapabilityCI, "GitHubActionsProvider"},
		{"circle", provider.CapabilityCI, "CircleCIProvider"},
		{"gitlabci", provider.CapabilityCI, "GitLabCIProvider"},
		{"gitlab", provider.CapabilityCI, "GitLabProvider"},
		{"bitbucket", provider.CapabilityGit, "BitbucketProvider"},
		{"pantheon", provider.CapabilitySite, "PantheonProvider"},
		{"git", provider.CapabilityCI, "git"},
		{"travis", provider.CapabilityCI, "travis"},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			if got := m.ResolveAlias(tt.alias, tt.capability); got != tt.want {
				t.Errorf("ResolveAlias(%q, %s) = %q, want %q", tt.alias, tt.capability, got, tt.want)
			}
		})
	}
}

func TestCreateProvider_WrongCapability(t *testing.T) {
	_, err := newManager().CreateProvider("gitlab", provider.CapabilityCI)
	if !errors.Is(err, clierrors.ErrMissingCapability) {
		t.Errorf("CreateProvider(gitlab, ci) error = %v, want ErrMissingCapability", err)
	}
}

func TestInferProvider(t *testing.T) {
	m := newManager()
	tests := []struct {
		url  string
		want string
	}{
		{"git@github.com:acme/site.git", "github"},
		{"https://gitlab.example.com/acme/site.git", "gitlab"},
		{"https://ada@bitbucket.org/acme/site.git", "bitbucket"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p, err := m.InferProvider(tt.url, provider.CapabilityGit)
			if err != nil {
				t.Fatalf("InferProvider: %v", err)
			}
			if p.ServiceName() != tt.want {
				t.Errorf("InferProvider(%q) = %s, want %s", tt.url, p.ServiceName(), tt.want)
			}
		})
	}

	if _, err := m.InferProvider("https://git.example.org/acme/site.git", provider.CapabilityGit); !errors.Is(err, provider.ErrNotInferred) {
		t.Errorf("InferProvider(unknown host) error = %v, want ErrNotInferred", err)
	}
}
