package github

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/crypto/nacl/box"

	"github.com/randalmurphal/buildtools/credential"
	clierrors "github.com/randalmurphal/buildtools/errors"
	"github.com/randalmurphal/buildtools/provider"
)

// ActionsServiceName identifies GitHub Actions.
const ActionsServiceName = "github-actions"

// reservedPrefix marks secret names GitHub refuses.
const reservedPrefix = "GITHUB_"

// ActionsProvider is the GitHub Actions CI provider. It shares the GitHub
// token credential with Provider.
type ActionsProvider struct {
	opts   provider.Options
	client *gh.Client
}

// NewActions creates an unauthenticated GitHub Actions provider.
func NewActions(opts provider.Options) (*ActionsProvider, error) {
	return &ActionsProvider{opts: opts.WithDefaults()}, nil
}

// ServiceName implements provider.Provider.
func (p *ActionsProvider) ServiceName() string { return ActionsServiceName }

// CredentialRequests implements provider.CredentialClient.
func (p *ActionsProvider) CredentialRequests() []*credential.Request {
	return []*credential.Request{tokenRequest(p.opts)}
}

// SetCredentials implements provider.CredentialClient.
func (p *ActionsProvider) SetCredentials(src credential.Source) error {
	token := src.Fetch(CredentialToken)
	if token == "" {
		return clierrors.NewMissingCredentialError(CredentialToken, TokenKey)
	}
	p.client = newClient(p.opts, token)
	return nil
}

// ConfigureServer implements provider.CIProvider. Every aggregated
// variable is stored as an encrypted repository secret, sealed with the
// repository's public key. Names GitHub reserves are skipped; workflows
// receive their own GITHUB_TOKEN.
func (p *ActionsProvider) ConfigureServer(ctx context.Context, ci provider.CIContext) error {
	if p.client == nil {
		return fmt.Errorf("%s: %w", ActionsServiceName, provider.ErrNotConfigured)
	}
	if ci.GitService != ServiceName {
		return fmt.Errorf("%w: %s builds only %s repositories, not %s",
			provider.ErrUnsupported, ActionsServiceName, ServiceName, ci.GitService)
	}
	owner, name, err := splitProject(ci.ProjectID)
	if err != nil {
		return err
	}

	endpoint := "repos/" + ci.ProjectID + "/actions/secrets/public-key"
	key, resp, err := p.client.Actions.GetRepoPublicKey(ctx, owner, name)
	if err != nil {
		return apiError(endpoint, resp, err)
	}
	publicKey, err := decodePublicKey(key.GetKey())
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
		if strings.HasPrefix(k, reservedPrefix) {
			p.opts.Logger.Debug("skipping reserved secret name", "key", k)
			continue
		}
		sealed, err := box.SealAnonymous(nil, []byte(vars[k]), publicKey, rand.Reader)
		if err != nil {
			return fmt.Errorf("encrypt secret %s: %w", k, err)
		}
		resp, err := p.client.Actions.CreateOrUpdateRepoSecret(ctx, owner, name, &gh.EncryptedSecret{
			Name:           k,
			KeyID:          key.GetKeyID(),
			EncryptedValue: base64.StdEncoding.EncodeToString(sealed),
		})
		if err != nil {
			return apiError("repos/"+ci.ProjectID+"/actions/secrets/"+k, resp, err)
		}
		p.opts.Logger.Debug("secret stored", "service", ActionsServiceName, "key", k)
	}
	p.opts.Logger.Info("CI configured", "service", ActionsServiceName, "project", ci.ProjectID, "variables", len(keys))
	return nil
}

// StartTesting implements provider.CIProvider. Workflows start on push, so
// there is nothing to trigger.
func (p *ActionsProvider) StartTesting(_ context.Context, ci provider.CIContext) error {
	p.opts.Logger.Info("tests start on push", "service", ActionsServiceName, "project", ci.ProjectID, "branch", ci.Branch)
	return nil
}

func decodePublicKey(encoded string) (*[32]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode repository public key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("repository public key is %d bytes, want 32", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}
