// Package pantheon adapts Pantheon as the site provider: multidev
// environments, their deletion workflows and SSH key registration.
//
// Pantheon authenticates with a long-lived machine token that is exchanged
// for a session on first use.
package pantheon

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/randalmurphal/buildtools/auth/ssh"
	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	buildhttp "github.com/randalmurphal/buildtools/http"
	"github.com/randalmurphal/buildtools/multidev"
	"github.com/randalmurphal/buildtools/provider"
	"github.com/randalmurphal/buildtools/state"
	"github.com/randalmurphal/buildtools/workflow"
)

const (
	// ServiceName identifies Pantheon in state and errors.
	ServiceName = "pantheon"

	// CredentialToken is the id of the machine token.
	CredentialToken = "terminus-token"

	defaultAPIURL = "https://terminus.pantheon.io/api/"

	// deleteWorkflow is the workflow type that removes a multidev.
	deleteWorkflow = "delete_cloud_development_environment"
)

// standardEnvironments are present on every site and are never multidevs.
var standardEnvironments = []string{"dev", "test", "live"}

// Provider is the Pantheon site provider.
type Provider struct {
	opts  provider.Options
	token string
	env   *state.SiteEnvironment

	mu      sync.Mutex
	session *session
	siteIDs map[string]string
}

type session struct {
	Token  string `json:"session"`
	UserID string `json:"user_id"`
}

// New creates an unauthenticated Pantheon provider.
func New(opts provider.Options) (*Provider, error) {
	return &Provider{
		opts:    opts.WithDefaults(),
		env:     state.NewSiteEnvironment(ServiceName),
		siteIDs: make(map[string]string),
	}, nil
}

// ServiceName implements provider.Provider.
func (p *Provider) ServiceName() string { return ServiceName }

// Environment implements provider.SiteProvider.
func (p *Provider) Environment() *state.SiteEnvironment { return p.env }

// CredentialRequests implements provider.CredentialClient.
func (p *Provider) CredentialRequests() []*credential.Request {
	return []*credential.Request{
		credential.NewRequest(CredentialToken,
			credential.WithPrompt("Pantheon machine token"),
			credential.WithInstructions("Create a machine token at https://dashboard.pantheon.io/personal-settings/machine-tokens"),
			credential.WithFailureMessage("Pantheon rejected that machine token."),
			credential.WithValidator(func(ctx context.Context, value string, _ map[string]string) (bool, error) {
				if _, err := p.authorize(ctx, value); err != nil {
					return false, err
				}
				return true, nil
			}),
		),
	}
}

// SetCredentials implements provider.CredentialClient. The session is
// negotiated lazily by the first API call.
func (p *Provider) SetCredentials(src credential.Source) error {
	token := src.Fetch(CredentialToken)
	if token == "" {
		return clierrors.NewMissingCredentialError(CredentialToken, state.KeyMachineToken)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	p.session = nil
	p.env.MachineToken = token
	p.opts.Executor.Redactor().Add(token)
	return nil
}

func (p *Provider) baseURL() string {
	if p.opts.Settings.PantheonAPIURL != "" {
		return p.opts.Settings.PantheonAPIURL
	}
	return defaultAPIURL
}

// authorize exchanges a machine token for a session.
func (p *Provider) authorize(ctx context.Context, token string) (*session, error) {
	anon := p.opts.APIClient(buildhttp.ClientConfig{
		BaseURL:     p.baseURL(),
		ServiceName: ServiceName,
	})
	var s session
	body := map[string]string{"machine_token": token, "client": "terminus"}
	if err := anon.Post(ctx, "authorize/machine-token", body, &s); err != nil {
		return nil, err
	}
	if s.Token == "" {
		return nil, fmt.Errorf("%s: machine token exchange returned no session", ServiceName)
	}
	return &s, nil
}

// client returns an API client bound to the current session, logging in
// first when needed.
func (p *Provider) client(ctx context.Context) (*buildhttp.Client, *session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" {
		return nil, nil, fmt.Errorf("%s: %w", ServiceName, provider.ErrNotConfigured)
	}
	if p.session == nil {
		s, err := p.authorize(ctx, p.token)
		if err != nil {
			return nil, nil, err
		}
		p.opts.Executor.Redactor().Add(s.Token)
		p.session = s
		p.opts.Logger.Debug("session established", "service", ServiceName, "user", s.UserID)
	}
	api := p.opts.APIClient(buildhttp.ClientConfig{
		BaseURL:      p.baseURL(),
		ServiceName:  ServiceName,
		Authenticate: buildhttp.BearerAuth(p.session.Token),
	})
	return api, p.session, nil
}

// siteID resolves a site name to its UUID.
func (p *Provider) siteID(ctx context.Context, api *buildhttp.Client, site string) (string, error) {
	p.mu.Lock()
	id, ok := p.siteIDs[site]
	p.mu.Unlock()
	if ok {
		return id, nil
	}

	var resp struct {
		ID string `json:"id"`
	}
	if err := api.Get(ctx, "site-names/"+url.PathEscape(site), nil, &resp); err != nil {
		return "", fmt.Errorf("look up site %s: %w", site, err)
	}
	p.mu.Lock()
	p.siteIDs[site] = resp.ID
	p.mu.Unlock()
	return resp.ID, nil
}

type environment struct {
	Created float64 `json:"environment_created"`
}

// ListEnvironments implements provider.SiteProvider. Only multidevs are
// returned, ordered by name.
func (p *Provider) ListEnvironments(ctx context.Context, site string) ([]multidev.Environment, error) {
	api, _, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	id, err := p.siteID(ctx, api, site)
	if err != nil {
		return nil, err
	}

	var envs map[string]environment
	if err := api.Get(ctx, "sites/"+id+"/environments", nil, &envs); err != nil {
		return nil, err
	}
	out := make([]multidev.Environment, 0, len(envs))
	for name, e := range envs {
		if slices.Contains(standardEnvironments, name) {
			continue
		}
		out = append(out, multidev.Environment{Name: name, Created: unixTime(e.Created)})
	}
	slices.SortFunc(out, func(a, b multidev.Environment) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return out, nil
}

// workflowRecord is Pantheon's workflow shape. Times are fractional unix
// seconds; finished_at and result are null while running.
type workflowRecord struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	CreatedAt   float64  `json:"created_at"`
	FinishedAt  *float64 `json:"finished_at"`
	Result      *string  `json:"result"`
}

func (w workflowRecord) record() workflow.Record {
	r := workflow.Record{
		ID:          w.ID,
		Description: w.Description,
		CreatedAt:   unixTime(w.CreatedAt),
	}
	if w.FinishedAt != nil {
		r.FinishedAt = unixTime(*w.FinishedAt)
	}
	if w.Result != nil {
		r.Result = *w.Result
	}
	return r
}

func unixTime(sec float64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}

// DeleteEnvironment implements provider.SiteProvider. The multidev's git
// branch is left in place.
func (p *Provider) DeleteEnvironment(ctx context.Context, site, env string) (workflow.Record, error) {
	if slices.Contains(standardEnvironments, env) {
		return workflow.Record{}, fmt.Errorf("%s: refusing to delete the %s environment", ServiceName, env)
	}
	api, _, err := p.client(ctx)
	if err != nil {
		return workflow.Record{}, err
	}
	id, err := p.siteID(ctx, api, site)
	if err != nil {
		return workflow.Record{}, err
	}

	body := map[string]any{
		"type": deleteWorkflow,
		"params": map[string]any{
			"environment_id": env,
			"delete_branch":  false,
		},
	}
	var started workflowRecord
	if err := api.Post(ctx, "sites/"+id+"/workflows", body, &started); err != nil {
		return workflow.Record{}, fmt.Errorf("delete %s.%s: %w", site, env, err)
	}
	p.opts.Logger.Info("multidev deletion started", "service", ServiceName, "site", site, "env", env, "workflow", started.ID)
	return started.record(), nil
}

// siteWorkflows lists one site's workflows.
type siteWorkflows struct {
	p    *Provider
	site string
}

// Workflows implements provider.SiteProvider.
func (p *Provider) Workflows(site string) workflow.Lister {
	return &siteWorkflows{p: p, site: site}
}

// RecentWorkflows implements workflow.Lister.
func (w *siteWorkflows) RecentWorkflows(ctx context.Context) ([]workflow.Record, error) {
	api, _, err := w.p.client(ctx)
	if err != nil {
		return nil, err
	}
	id, err := w.p.siteID(ctx, api, w.site)
	if err != nil {
		return nil, err
	}
	var raw []workflowRecord
	if err := api.Get(ctx, "sites/"+id+"/workflows", nil, &raw); err != nil {
		return nil, err
	}
	records := make([]workflow.Record, len(raw))
	for i, r := range raw {
		records[i] = r.record()
	}
	slices.SortStableFunc(records, func(a, b workflow.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return records, nil
}

// AddSSHKey implements provider.SiteProvider. The key is validated
// locally before it is sent.
func (p *Provider) AddSSHKey(ctx context.Context, publicKey string) error {
	info, err := ssh.ParsePublicKey("", publicKey)
	if err != nil {
		return err
	}
	api, s, err := p.client(ctx)
	if err != nil {
		return err
	}
	if err := api.Post(ctx, "users/"+s.UserID+"/keys", info.PublicKey, nil); err != nil {
		return fmt.Errorf("add ssh key %s: %w", info.Fingerprint, err)
	}
	p.opts.Logger.Info("ssh key added", "service", ServiceName, "fingerprint", info.Fingerprint)
	return nil
}
