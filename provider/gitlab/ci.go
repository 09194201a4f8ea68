package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"slices"

	gl "github.com/xanzy/go-gitlab"

	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	"github.com/randalmurphal/buildtools/provider"
)

// CIServiceName identifies GitLab CI.
const CIServiceName = "gitlab-ci"

// maskablePattern is the value shape GitLab accepts for masked variables.
var maskablePattern = regexp.MustCompile(`^[A-Za-z0-9+/=@:.~_-]{8,}$`)

// CIProvider is the GitLab CI provider. It shares the GitLab token
// credential with Provider.
type CIProvider struct {
	opts   provider.Options
	client *gl.Client
}

// NewCI creates an unauthenticated GitLab CI provider.
func NewCI(opts provider.Options) (*CIProvider, error) {
	return &CIProvider{opts: opts.WithDefaults()}, nil
}

// ServiceName implements provider.Provider.
func (p *CIProvider) ServiceName() string { return CIServiceName }

// CredentialRequests implements provider.CredentialClient.
func (p *CIProvider) CredentialRequests() []*credential.Request {
	return []*credential.Request{tokenRequest(p.opts)}
}

// SetCredentials implements provider.CredentialClient.
func (p *CIProvider) SetCredentials(src credential.Source) error {
	token := src.Fetch(CredentialToken)
	if token == "" {
		return clierrors.NewMissingCredentialError(CredentialToken, TokenKey)
	}
	client, err := newClient(p.opts, token)
	if err != nil {
		return err
	}
	p.client = client
	return nil
}

func (p *CIProvider) ready(ci provider.CIContext) error {
	if p.client == nil {
		return fmt.Errorf("%s: %w", CIServiceName, provider.ErrNotConfigured)
	}
	if ci.GitService != ServiceName {
		return fmt.Errorf("%w: %s builds only %s repositories, not %s",
			provider.ErrUnsupported, CIServiceName, ServiceName, ci.GitService)
	}
	return nil
}

// ConfigureServer implements provider.CIProvider. Existing variables are
// updated in place. Secrets are masked when GitLab can mask the value.
func (p *CIProvider) ConfigureServer(ctx context.Context, ci provider.CIContext) error {
	if err := p.ready(ci); err != nil {
		return err
	}

	secret := make(map[string]bool)
	for _, k := range ci.State.Secrets() {
		secret[k] = true
	}
	vars := ci.State.AggregateState()
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		masked := secret[k] && maskablePattern.MatchString(vars[k])
		if secret[k] && !masked {
			p.opts.Logger.Warn("secret cannot be masked by GitLab", "project", ci.ProjectID, "key", k)
		}
		if err := p.setVariable(ctx, ci.ProjectID, k, vars[k], masked); err != nil {
			return err
		}
	}
	p.opts.Logger.Info("CI configured", "service", CIServiceName, "project", ci.ProjectID, "variables", len(keys))
	return nil
}

func (p *CIProvider) setVariable(ctx context.Context, projectID, key, value string, masked bool) error {
	endpoint := projectPath(projectID) + "/variables"
	_, resp, err := p.client.ProjectVariables.CreateVariable(projectID, &gl.CreateProjectVariableOptions{
		Key:    gl.Ptr(key),
		Value:  gl.Ptr(value),
		Masked: gl.Ptr(masked),
	}, gl.WithContext(ctx))
	if err == nil {
		p.opts.Logger.Debug("variable created", "service", CIServiceName, "key", key)
		return nil
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		return apiError(endpoint, resp, err)
	}

	// Taken keys are rejected with 400; update instead.
	_, resp, err = p.client.ProjectVariables.UpdateVariable(projectID, key, &gl.UpdateProjectVariableOptions{
		Value:  gl.Ptr(value),
		Masked: gl.Ptr(masked),
	}, gl.WithContext(ctx))
	if err != nil {
		return apiError(endpoint+"/"+key, resp, err)
	}
	p.opts.Logger.Debug("variable updated", "service", CIServiceName, "key", key)
	return nil
}

// StartTesting implements provider.CIProvider by creating a pipeline for
// ci.Branch.
func (p *CIProvider) StartTesting(ctx context.Context, ci provider.CIContext) error {
	if err := p.ready(ci); err != nil {
		return err
	}
	pipeline, resp, err := p.client.Pipelines.CreatePipeline(ci.ProjectID, &gl.CreatePipelineOptions{
		Ref: gl.Ptr(ci.Branch),
	}, gl.WithContext(ctx))
	if err != nil {
		return apiError(projectPath(ci.ProjectID)+"/pipeline", resp, err)
	}
	p.opts.Logger.Info("pipeline started", "service", CIServiceName, "project", ci.ProjectID,
		"branch", ci.Branch, "pipeline", pipeline.ID)
	return nil
}
