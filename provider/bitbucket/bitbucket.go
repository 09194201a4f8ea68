// Package bitbucket adapts Bitbucket Cloud as a git provider. It speaks the
// REST API directly with an app password.
package bitbucket

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	buildhttp "github.com/randalmurphal/buildtools/http"
	"github.com/randalmurphal/buildtools/pr"
	"github.com/randalmurphal/buildtools/provider"
	"github.com/randalmurphal/buildtools/state"
)

const (
	// ServiceName identifies Bitbucket in state and errors.
	ServiceName = "bitbucket"

	// CredentialUser is the id of the account username.
	CredentialUser = "bitbucket-user"

	// CredentialPassword is the id of the app password.
	CredentialPassword = "bitbucket-pass"

	// TokenKey is the CI variable the app password is published under.
	TokenKey = "BITBUCKET_PASS"

	// UserKey is the CI variable the username is published under.
	UserKey = "BITBUCKET_USER"

	defaultAPIURL = "https://api.bitbucket.org/2.0/"
	webURL        = "https://bitbucket.org/"
	pageLength    = "50"
)

// Provider is the Bitbucket git provider.
type Provider struct {
	opts     provider.Options
	user     string
	password string
	login    string
	api      *buildhttp.Client
	env      *state.RepositoryEnvironment
}

// New creates an unauthenticated Bitbucket provider.
func New(opts provider.Options) (*Provider, error) {
	return &Provider{
		opts: opts.WithDefaults(),
		env:  state.NewRepositoryEnvironment(ServiceName, TokenKey),
	}, nil
}

// Infer matches Bitbucket remote URLs.
func Infer(remoteURL string) bool {
	return provider.HostMatcher("bitbucket")(remoteURL)
}

// ServiceName implements provider.Provider.
func (p *Provider) ServiceName() string { return ServiceName }

// TokenKey implements provider.GitProvider.
func (p *Provider) TokenKey() string { return TokenKey }

// Environment implements provider.GitProvider.
func (p *Provider) Environment() *state.RepositoryEnvironment { return p.env }

// CredentialRequests implements provider.CredentialClient. The password
// owns the username, so a rejected pair prompts for both again.
func (p *Provider) CredentialRequests() []*credential.Request {
	user := credential.NewRequest(CredentialUser,
		credential.WithPrompt("Bitbucket username"),
	)
	password := credential.NewRequest(CredentialPassword,
		credential.WithPrompt("Bitbucket app password"),
		credential.WithInstructions("Create an app password with repository admin and pull request read permissions under Personal settings > App passwords."),
		credential.WithFailureMessage("Bitbucket rejected that username and app password."),
		credential.WithDependents(user),
		credential.WithValidator(func(ctx context.Context, value string, deps map[string]string) (bool, error) {
			var me account
			if err := p.client(deps[CredentialUser], value).Get(ctx, "user", nil, &me); err != nil {
				return false, err
			}
			return true, nil
		}),
	)
	return []*credential.Request{password}
}

// SetCredentials implements provider.CredentialClient.
func (p *Provider) SetCredentials(src credential.Source) error {
	user := src.Fetch(CredentialUser)
	if user == "" {
		return clierrors.NewMissingCredentialError(CredentialUser, UserKey)
	}
	password := src.Fetch(CredentialPassword)
	if password == "" {
		return clierrors.NewMissingCredentialError(CredentialPassword, TokenKey)
	}
	p.user = user
	p.password = password
	p.api = p.client(user, password)
	p.env.SetToken(TokenKey, password)
	if err := p.env.SetSecret(UserKey, user); err != nil {
		return err
	}
	p.opts.Executor.Redactor().Add(password)
	return nil
}

func (p *Provider) client(user, password string) *buildhttp.Client {
	base := p.opts.Settings.BitbucketAPIURL
	if base == "" {
		base = defaultAPIURL
	}
	return p.opts.APIClient(buildhttp.ClientConfig{
		BaseURL:      base,
		ServiceName:  ServiceName,
		Authenticate: buildhttp.BasicAuth(user, password),
	})
}

func (p *Provider) ready() error {
	if p.api == nil {
		return fmt.Errorf("%s: %w", ServiceName, provider.ErrNotConfigured)
	}
	return nil
}

type account struct {
	Username string `json:"username"`
}

// AuthenticatedUser implements provider.GitProvider.
func (p *Provider) AuthenticatedUser(ctx context.Context) (string, error) {
	if err := p.ready(); err != nil {
		return "", err
	}
	if p.login != "" {
		return p.login, nil
	}
	var me account
	if err := p.api.Get(ctx, "user", nil, &me); err != nil {
		return "", err
	}
	p.login = me.Username
	if p.login == "" {
		p.login = p.user
	}
	return p.login, nil
}

type repository struct {
	FullName string `json:"full_name"`
}

// CreateRepository implements provider.GitProvider. An empty org creates
// the repository in the user's own workspace.
func (p *Provider) CreateRepository(ctx context.Context, org, name string) (string, error) {
	workspace := org
	if workspace == "" {
		login, err := p.AuthenticatedUser(ctx)
		if err != nil {
			return "", err
		}
		workspace = login
	}
	if err := p.ready(); err != nil {
		return "", err
	}

	var repo repository
	body := map[string]any{"scm": "git", "is_private": true}
	if err := p.api.Post(ctx, "repositories/"+pr.Project(workspace, strings.ToLower(name)), body, &repo); err != nil {
		return "", err
	}
	projectID := repo.FullName
	if projectID == "" {
		projectID = pr.Project(workspace, strings.ToLower(name))
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
		p.user, p.password, branch)
}

// DeleteRepository implements provider.GitProvider.
func (p *Provider) DeleteRepository(ctx context.Context, projectID string) error {
	if err := p.ready(); err != nil {
		return err
	}
	if err := p.api.Delete(ctx, "repositories/"+projectID); err != nil {
		return err
	}
	p.opts.Logger.Info("repository deleted", "service", ServiceName, "project", projectID)
	return nil
}

// ProjectURL implements provider.GitProvider.
func (p *Provider) ProjectURL(projectID string) string {
	return webURL + projectID
}

type pullRequest struct {
	ID     int    `json:"id"`
	State  string `json:"state"`
	Source struct {
		Branch struct {
			Name string `json:"name"`
		} `json:"branch"`
	} `json:"source"`
}

// pullRequestPage is Bitbucket's paging envelope. Bitbucket pages in the
// body rather than with a Link header.
type pullRequestPage struct {
	Values []pullRequest `json:"values"`
	Next   string        `json:"next"`
}

func stateQuery(st pr.State) []string {
	switch st {
	case pr.StateOpen:
		return []string{"OPEN"}
	case pr.StateClosed:
		return []string{"MERGED", "DECLINED", "SUPERSEDED"}
	default:
		return []string{"OPEN", "MERGED", "DECLINED", "SUPERSEDED"}
	}
}

// ListPullRequests implements pr.Lister by following the body's next
// links. Paging ends without a next link or when it repeats the current
// page.
func (p *Provider) ListPullRequests(ctx context.Context, projectID string, st pr.State, fn pr.PageFunc) error {
	if err := p.ready(); err != nil {
		return err
	}
	uri := "repositories/" + projectID + "/pullrequests"
	params := url.Values{"state": stateQuery(st), "pagelen": {pageLength}}
	if p.opts.Settings.PageSize > 0 {
		params.Set("pagelen", fmt.Sprint(p.opts.Settings.PageSize))
	}

	for {
		var page pullRequestPage
		if err := p.api.Get(ctx, uri, params, &page); err != nil {
			return err
		}
		infos := make([]pr.PullRequestInfo, len(page.Values))
		for i, v := range page.Values {
			infos[i] = pr.PullRequestInfo{
				Number: v.ID,
				Closed: v.State != "OPEN",
				Branch: v.Source.Branch.Name,
			}
		}
		if !fn(infos) || page.Next == "" || page.Next == uri {
			return nil
		}
		p.opts.Logger.Debug("fetching next page", "service", ServiceName, "uri", page.Next)
		uri, params = page.Next, nil
	}
}
