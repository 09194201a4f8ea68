// Package github adapts GitHub as a git provider and GitHub Actions as a
// CI provider.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	buildhttp "github.com/randalmurphal/buildtools/http"
	"github.com/randalmurphal/buildtools/pr"
	"github.com/randalmurphal/buildtools/provider"
	"github.com/randalmurphal/buildtools/state"
)

const (
	// ServiceName identifies GitHub in state and errors.
	ServiceName = "github"

	// CredentialToken is the id of the personal access token.
	CredentialToken = "github-token"

	// TokenKey is the CI variable the token is published under.
	TokenKey = "GITHUB_TOKEN"

	defaultAPIURL = "https://api.github.com/"
	webURL        = "https://github.com/"
)

// Provider is the GitHub git provider.
type Provider struct {
	opts   provider.Options
	token  string
	login  string
	client *gh.Client
	api    *buildhttp.Client
	env    *state.RepositoryEnvironment
}

// New creates an unauthenticated GitHub provider.
func New(opts provider.Options) (*Provider, error) {
	return &Provider{
		opts: opts.WithDefaults(),
		env:  state.NewRepositoryEnvironment(ServiceName, TokenKey),
	}, nil
}

// Infer matches GitHub remote URLs.
func Infer(remoteURL string) bool {
	return provider.HostMatcher("github.com")(remoteURL)
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
	p.token = token
	p.client = newClient(p.opts, token)
	p.api = newAPIClient(p.opts, token)
	p.env.SetToken(TokenKey, token)
	p.opts.Executor.Redactor().Add(token)
	return nil
}

func tokenRequest(opts provider.Options) *credential.Request {
	return credential.NewRequest(CredentialToken,
		credential.WithPrompt("GitHub personal access token"),
		credential.WithInstructions("Create a token with the repo and workflow scopes at https://github.com/settings/tokens"),
		credential.WithFailureMessage("GitHub rejected that token."),
		credential.WithValidator(func(ctx context.Context, value string, _ map[string]string) (bool, error) {
			_, _, err := newClient(opts, value).Users.Get(ctx, "")
			if err != nil {
				return false, err
			}
			return true, nil
		}),
	)
}

func apiURL(opts provider.Options) string {
	if opts.Settings.GitHubAPIURL != "" {
		return opts.Settings.GitHubAPIURL
	}
	return defaultAPIURL
}

// newClient builds a go-github client whose oauth2 transport wraps the
// shared HTTP client.
func newClient(opts provider.Options, token string) *gh.Client {
	opts = opts.WithDefaults()
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)
	tc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	tc.Timeout = opts.HTTPClient.Timeout

	client := gh.NewClient(tc)
	base := apiURL(opts)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	if u, err := url.Parse(base); err == nil {
		client.BaseURL = u
	}
	return client
}

func newAPIClient(opts provider.Options, token string) *buildhttp.Client {
	return opts.APIClient(buildhttp.ClientConfig{
		BaseURL:      apiURL(opts),
		ServiceName:  ServiceName,
		Authenticate: buildhttp.BearerAuth(token),
		Paginated:    true,
		PageSize:     100,
	})
}

// apiError converts a go-github failure to the uniform *buildhttp.APIError.
func apiError(endpoint string, resp *gh.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil || resp.Response == nil || resp.StatusCode < 300 {
		return fmt.Errorf("%s request failed: %w", ServiceName, err)
	}
	msg := http.StatusText(resp.StatusCode)
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Message != "" {
		msg = ghErr.Message
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
	user, resp, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return "", apiError("user", resp, err)
	}
	p.login = user.GetLogin()
	return p.login, nil
}

// CreateRepository implements provider.GitProvider. Repositories are
// created private.
func (p *Provider) CreateRepository(ctx context.Context, org, name string) (string, error) {
	login, err := p.AuthenticatedUser(ctx)
	if err != nil {
		return "", err
	}
	owner := org
	if strings.EqualFold(org, login) {
		owner = ""
	}

	repo, resp, err := p.client.Repositories.Create(ctx, owner, &gh.Repository{
		Name:    gh.String(name),
		Private: gh.Bool(true),
	})
	if err != nil {
		return "", apiError("repos", resp, err)
	}

	projectID := repo.GetFullName()
	if projectID == "" {
		if owner == "" {
			owner = login
		}
		projectID = pr.Project(owner, name)
	}
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
		"x-access-token", p.token, branch)
}

// DeleteRepository implements provider.GitProvider.
func (p *Provider) DeleteRepository(ctx context.Context, projectID string) error {
	if err := p.ready(); err != nil {
		return err
	}
	owner, name, err := splitProject(projectID)
	if err != nil {
		return err
	}
	resp, err := p.client.Repositories.Delete(ctx, owner, name)
	if err != nil {
		return apiError("repos/"+projectID, resp, err)
	}
	p.opts.Logger.Info("repository deleted", "service", ServiceName, "project", projectID)
	return nil
}

// ProjectURL implements provider.GitProvider.
func (p *Provider) ProjectURL(projectID string) string {
	return webURL + projectID
}

type pullRequest struct {
	Number int    `json:"number"`
	State  string `json:"state"`
	Head   struct {
		Ref string `json:"ref"`
	} `json:"head"`
}

// ListPullRequests implements pr.Lister.
func (p *Provider) ListPullRequests(ctx context.Context, projectID string, st pr.State, fn pr.PageFunc) error {
	if err := p.ready(); err != nil {
		return err
	}
	params := url.Values{"state": {string(st)}}
	return buildhttp.EachPage(ctx, p.api, "repos/"+projectID+"/pulls", params, func(page []pullRequest) bool {
		infos := make([]pr.PullRequestInfo, len(page))
		for i, pull := range page {
			infos[i] = pr.PullRequestInfo{
				Number: pull.Number,
				Closed: pull.State == "closed",
				Branch: pull.Head.Ref,
			}
		}
		return fn(infos)
	})
}

func splitProject(projectID string) (string, string, error) {
	owner, name, ok := strings.Cut(projectID, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("invalid %s project id %q", ServiceName, projectID)
	}
	return owner, name, nil
}
