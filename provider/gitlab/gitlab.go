// Package gitlab adapts GitLab as a git provider and GitLab CI as a CI
// provider. Self-hosted instances are reached through the gitlab_url
// setting.
package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gl "github.com/xanzy/go-gitlab"

	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	buildhttp "github.com/randalmurphal/buildtools/http"
	"github.com/randalmurphal/buildtools/pr"
	"github.com/randalmurphal/buildtools/provider"
	"github.com/randalmurphal/buildtools/state"
)

const (
	// ServiceName identifies GitLab in state and errors.
	ServiceName = "gitlab"

	// CredentialToken is the id of the personal access token.
	CredentialToken = "gitlab-token"

	// TokenKey is the CI variable the token is published under.
	TokenKey = "GITLAB_TOKEN"

	defaultURL = "https://gitlab.com"
)

// Provider is the GitLab git provider.
type Provider struct {
	opts   provider.Options
	token  string
	login  string
	client *gl.Client
	api    *buildhttp.Client
	env    *state.RepositoryEnvironment
}

// New creates an unauthenticated GitLab provider.
func New(opts provider.Options) (*Provider, error) {
	return &Provider{
		opts: opts.WithDefaults(),
		env:  state.NewRepositoryEnvironment(ServiceName, TokenKey),
	}, nil
}

// Infer matches GitLab remote URLs, including self-hosted hosts named
// gitlab.
func Infer(remoteURL string) bool {
	return provider.HostMatcher("gitlab")(remoteURL)
}

// ServiceName implements provider.Provider.
func (p *Provider) ServiceName() string { return ServiceName }

// TokenKey implements provider.GitProvider.
func (p *Provider) TokenKey() string { return TokenKey }

// Environment implements provider.GitProvider.
func (p *Provider) Environment() *state.RepositoryEnvironment { return p.env }

// CredentialRequests implements provider.CredentialClient.
func (p *Provider) CredentialRequests() []*credential.Request {
	return []*credential.Request{tokenRequest(p.opts)}
}

// SetCredentials implements provider.CredentialClient.
func (p *Provider) SetCredentials(src credential.Source) error {
	token := src.Fetch(CredentialToken)
	if token == "" {
		return clierrors.NewMissingCredentialError(CredentialToken, TokenKey)
	}
	client, err := newClient(p.opts, token)
	if err != nil {
		return err
	}
	p.token = token
	p.client = client
	p.api = newAPIClient(p.opts, token)
	p.env.SetToken(TokenKey, token)
	p.opts.Executor.Redactor().Add(token)
	return nil
}

func tokenRequest(opts provider.Options) *credential.Request {
	return credential.NewRequest(CredentialToken,
		credential.WithPrompt("GitLab personal access token"),
		credential.WithInstructions("Create a token with the api scope under User Settings > Access Tokens."),
		credential.WithFailureMessage("GitLab rejected that token."),
		credential.WithValidator(func(ctx context.Context, value string, _ map[string]string) (bool, error) {
			client, err := newClient(opts, value)
			if err != nil {
				return false, err
			}
			if _, _, err := client.Users.CurrentUser(gl.WithContext(ctx)); err != nil {
				return false, err
			}
			return true, nil
		}),
	)
}

func instanceURL(opts provider.Options) string {
	if opts.Settings.GitLabURL != "" {
		return strings.TrimSuffix(opts.Settings.GitLabURL, "/")
	}
	return defaultURL
}

func newClient(opts provider.Options, token string) (*gl.Client, error) {
	opts = opts.WithDefaults()
	client, err := gl.NewClient(token,
		gl.WithBaseURL(instanceURL(opts)),
		gl.WithHTTPClient(opts.HTTPClient),
		gl.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}
	return client, nil
}

func newAPIClient(opts provider.Options, token string) *buildhttp.Client {
	return opts.APIClient(buildhttp.ClientConfig{
		BaseURL:      instanceURL(opts) + "/api/v4/",
		ServiceName:  ServiceName,
		Authenticate: buildhttp.HeaderAuth("PRIVATE-TOKEN", token),
		Paginated:    true,
		PageSize:     100,
	})
}

// apiError converts a go-gitlab failure to the uniform *buildhttp.APIError.
func apiError(endpoint string, resp *gl.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil || resp.Response == nil || resp.StatusCode < 300 {
		return fmt.Errorf("%s request failed: %w", ServiceName, err)
	}
	msg := http.StatusText(resp.StatusCode)
	var glErr *gl.ErrorResponse
	if errors.As(err, &glErr) && glErr.Message != "" {
		msg = glErr.Message
	}
	return &buildhttp.APIError{
		Service:    ServiceName,
		StatusCode: resp.StatusCode,
		Message:    msg,
		Endpoint:   endpoint,
	}
}

func (p *Provider) ready() error {
	if p.client == nil {
		return fmt.Errorf("%s: %w", ServiceName, provider.ErrNotConfigured)
	}
	return nil
}

// AuthenticatedUser implements provider.GitProvider.
func (p *Provider) AuthenticatedUser(ctx context.Context) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}
	if p.login != "" {
		return p.login, nil
	}
	user, resp, err := p.client.Users.CurrentUser(gl.WithContext(ctx))
	if err != nil {
		return "", apiError("user", resp, err)
	}
	p.login = user.Username
	return p.login, nil
}

// CreateRepository implements provider.GitProvider. A non-personal org is
// looked up as a group namespace. Projects are created private.
func (p *Provider) CreateRepository(ctx context.Context, org, name string) (string, error) {
	login, err := p.AuthenticatedUser(ctx)
	if err != nil {
		return "", err
	}

	opts := &gl.CreateProjectOptions{
		Name:       gl.Ptr(name),
		Visibility: gl.Ptr(gl.PrivateVisibility),
	}
	if org != "" && !strings.EqualFold(org, login) {
		ns, resp, err := p.client.Namespaces.GetNamespace(org, gl.WithContext(ctx))
		if err != nil {
			return "", apiError("namespaces/"+org, resp, err)
		}
		opts.NamespaceID = gl.Ptr(ns.ID)
	}

	project, resp, err := p.client.Projects.CreateProject(opts, gl.WithContext(ctx))
	if err != nil {
		return "", apiError("projects", resp, err)
	}
	projectID := project.PathWithNamespace
	p.env.ProjectID = projectID
	p.opts.Logger.Info("repository created", "service", ServiceName, "project", projectID)
	return projectID, nil
}

// PushRepository implements provider.GitProvider.
func (p *Provider) PushRepository(ctx context.Context, dir, projectID, branch string) error {
	if err := p.ready(); err != nil {
		return err
	}
	return provider.PushWithCredentials(ctx, p.opts.Executor, dir, p.ProjectURL(projectID)+".git",
		"oauth2", p.token, branch)
}

// DeleteRepository implements provider.GitProvider.
func (p *Provider) DeleteRepository(ctx context.Context, projectID string) error {
	if err := p.ready(); err != nil {
		return err
	}
	if err := p.api.Delete(ctx, projectPath(projectID)); err != nil {
		return err
	}
	p.opts.Logger.Info("repository deleted", "service", ServiceName, "project", projectID)
	return nil
}

// ProjectURL implements provider.GitProvider.
func (p *Provider) ProjectURL(projectID string) string {
	return instanceURL(p.opts) + "/" + projectID
}

type mergeRequest struct {
	IID          int    `json:"iid"`
	State        string `json:"state"`
	SourceBranch string `json:"source_branch"`
}

// ListPullRequests implements pr.Lister. Merged and closed merge requests
// both count as closed.
func (p *Provider) ListPullRequests(ctx context.Context, projectID string, st pr.State, fn pr.PageFunc) error {
	if err := p.ready(); err != nil {
		return err
	}
	query := "all"
	if st == pr.StateOpen {
		query = "opened"
	}
	params := url.Values{"state": {query}}
	return buildhttp.EachPage(ctx, p.api, projectPath(projectID)+"/merge_requests", params, func(page []mergeRequest) bool {
		infos := make([]pr.PullRequestInfo, 0, len(page))
		for _, mr := range page {
			info := pr.PullRequestInfo{
				Number: mr.IID,
				Closed: mr.State != "opened",
				Branch: mr.SourceBranch,
			}
			if st == pr.StateClosed && !info.Closed {
				continue
			}
			infos = append(infos, info)
		}
		return fn(infos)
	})
}

// projectPath returns the API path of a project, its "group/name" id
// escaped into one segment.
func projectPath(projectID string) string {
	return "projects/" + url.PathEscape(projectID)
}
