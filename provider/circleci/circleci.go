// Package circleci adapts CircleCI as a CI provider for GitHub and
// Bitbucket repositories.
package circleci

import (
	"context"
	"fmt"
	"slices"

	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	buildhttp "github.com/randalmurphal/buildtools/http"
	"github.com/randalmurphal/buildtools/provider"
)

const (
	// ServiceName identifies CircleCI in state and errors.
	ServiceName = "circleci"

	// CredentialToken is the id of the personal API token.
	CredentialToken = "circle-token"

	// TokenEnv is the environment variable that supplies the token.
	TokenEnv = "CIRCLE_TOKEN"

	defaultAPIURL = "https://circleci.com/api/v2/"
	tokenHeader   = "Circle-Token"
)

// vcsSlugs maps git services to CircleCI's project slug prefix.
var vcsSlugs = map[string]string{
	"github":    "gh",
	"bitbucket": "bb",
}

// Provider is the CircleCI CI provider.
type Provider struct {
	opts provider.Options
	api  *buildhttp.Client
}

// New creates an unauthenticated CircleCI provider.
func New(opts provider.Options) (*Provider, error) {
	return &Provider{opts: opts.WithDefaults()}, nil
}

// ServiceName implements provider.Provider.
func (p *Provider) ServiceName() string { return ServiceName }

// CredentialRequests implements provider.CredentialClient.
func (p *Provider) CredentialRequests() []*credential.Request {
	return []*credential.Request{
		credential.NewRequest(CredentialToken,
			credential.WithPrompt("CircleCI personal API token"),
			credential.WithInstructions("Create a personal API token at https://app.circleci.com/settings/user/tokens"),
			credential.WithFailureMessage("CircleCI rejected that token."),
			credential.WithValidator(func(ctx context.Context, value string, _ map[string]string) (bool, error) {
				var me struct {
					Login string `json:"login"`
				}
				if err := p.client(value).Get(ctx, "me", nil, &me); err != nil {
					return false, err
				}
				return true, nil
			}),
		),
	}
}

// SetCredentials implements provider.CredentialClient.
func (p *Provider) SetCredentials(src credential.Source) error {
	token := src.Fetch(CredentialToken)
	if token == "" {
		return clierrors.NewMissingCredentialError(CredentialToken, TokenEnv)
	}
	p.api = p.client(token)
	p.opts.Executor.Redactor().Add(token)
	return nil
}

func (p *Provider) client(token string) *buildhttp.Client {
	base := p.opts.Settings.CircleAPIURL
	if base == "" {
		base = defaultAPIURL
	}
	return p.opts.APIClient(buildhttp.ClientConfig{
		BaseURL:      base,
		ServiceName:  ServiceName,
		Authenticate: buildhttp.HeaderAuth(tokenHeader, token),
	})
}

// ProjectSlug returns CircleCI's "vcs/org/repo" slug for a project hosted
// on gitService.
func ProjectSlug(gitService, projectID string) (string, error) {
	prefix, ok := vcsSlugs[gitService]
	if !ok {
		return "", fmt.Errorf("%w: %s cannot build %s repositories", provider.ErrUnsupported, ServiceName, gitService)
	}
	return prefix + "/" + projectID, nil
}

func (p *Provider) slug(ci provider.CIContext) (string, error) {
	if p.api == nil {
		return "", fmt.Errorf("%s: %w", ServiceName, provider.ErrNotConfigured)
	}
	return ProjectSlug(ci.GitService, ci.ProjectID)
}

type envVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ConfigureServer implements provider.CIProvider. CircleCI masks every
// project variable, so secrets need no separate treatment.
func (p *Provider) ConfigureServer(ctx context.Context, ci provider.CIContext) error {
	slug, err := p.slug(ci)
	if err != nil {
		return err
	}

	vars := ci.State.AggregateState()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := p.api.Post(ctx, "project/"+slug+"/envvar", envVar{Name: k, Value: vars[k]}, nil); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
		p.opts.Logger.Debug("variable stored", "service", ServiceName, "key", k)
	}
	p.opts.Logger.Info("CI configured", "service", ServiceName, "project", slug, "variables", len(keys))
	return nil
}

type pipeline struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
}

// StartTesting implements provider.CIProvider by triggering a pipeline on
// the build branch.
func (p *Provider) StartTesting(ctx context.Context, ci provider.CIContext) error {
	slug, err := p.slug(ci)
	if err != nil {
		return err
	}
	body := map[string]string{}
	if ci.Branch != "" {
		body["branch"] = ci.Branch
	}
	var started pipeline
	if err := p.api.Post(ctx, "project/"+slug+"/pipeline", body, &started); err != nil {
		return err
	}
	p.opts.Logger.Info("pipeline started", "service", ServiceName, "project", slug, "number", started.Number)
	return nil
}
