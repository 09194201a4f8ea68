package provider

import (
	"context"

	"github.com/randalmurphal/buildtools/credential"
	"github.com/randalmurphal/buildtools/multidev"
	"github.com/randalmurphal/buildtools/pr"
	"github.com/randalmurphal/buildtools/state"
	"github.com/randalmurphal/buildtools/workflow"
)

// Provider is implemented by every adapter.
type Provider interface {
	// ServiceName is the short service identifier (e.g., "github").
	ServiceName() string
}

// CredentialClient is implemented by providers that need secrets.
type CredentialClient interface {
	// CredentialRequests lists the credentials the provider needs.
	CredentialRequests() []*credential.Request

	// SetCredentials pulls resolved values out of src. It fails when a
	// required value is missing.
	SetCredentials(src credential.Source) error
}

// GitProvider hosts repositories.
type GitProvider interface {
	Provider
	pr.Lister

	// TokenKey is the CI variable the provider's token is published under.
	TokenKey() string

	// Environment is the state published to the CI server.
	Environment() *state.RepositoryEnvironment

	// AuthenticatedUser returns the login the credentials belong to.
	AuthenticatedUser(ctx context.Context) (string, error)

	// CreateRepository creates org/name and returns its project id. An
	// empty org or the user's own login creates a personal repository.
	CreateRepository(ctx context.Context, org, name string) (string, error)

	// PushRepository pushes HEAD of the repository in dir to branch.
	PushRepository(ctx context.Context, dir, projectID, branch string) error

	DeleteRepository(ctx context.Context, projectID string) error

	// ProjectURL returns the browsable URL of a project.
	ProjectURL(projectID string) string
}

// CIContext describes the build a CI provider configures.
type CIContext struct {
	// ProjectID is the "org/name" id of the repository being built.
	ProjectID string

	// GitService is the ServiceName of the git provider hosting it.
	GitService string

	// Branch is the branch to test.
	Branch string

	// State holds every variable to publish.
	State *state.CIState
}

// CIProvider runs builds.
type CIProvider interface {
	Provider

	// ConfigureServer publishes ci.State's aggregate to the project.
	ConfigureServer(ctx context.Context, ci CIContext) error

	// StartTesting starts a build of ci.Branch.
	StartTesting(ctx context.Context, ci CIContext) error
}

// SiteProvider hosts the application and its multidev environments.
type SiteProvider interface {
	Provider

	// Environment is the state published to the CI server.
	Environment() *state.SiteEnvironment

	ListEnvironments(ctx context.Context, site string) ([]multidev.Environment, error)

	// DeleteEnvironment starts deletion of env and returns the remote
	// workflow doing it.
	DeleteEnvironment(ctx context.Context, site, env string) (workflow.Record, error)

	// Workflows returns a lister of site's recent workflows.
	Workflows(site string) workflow.Lister

	// AddSSHKey registers an OpenSSH public key with the current user.
	AddSSHKey(ctx context.Context, publicKey string) error
}
