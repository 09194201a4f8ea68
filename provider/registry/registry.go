// Package registry holds the table of providers compiled into the binary.
package registry

import (
	"github.com/randalmurphal/buildtools/provider"
	"github.com/randalmurphal/buildtools/provider/bitbucket"
	"github.com/randalmurphal/buildtools/provider/circleci"
	"github.com/randalmurphal/buildtools/provider/github"
	"github.com/randalmurphal/buildtools/provider/gitlab"
	"github.com/randalmurphal/buildtools/provider/pantheon"
)

// Default returns every known provider. Order decides listing order and
// inference precedence.
func Default() []provider.Registration {
	return []provider.Registration{
		{
			Name:         "GitHubProvider",
			Label:        github.ServiceName,
			Capabilities: []provider.Capability{provider.CapabilityGit},
			Infer:        github.Infer,
			New:          construct(github.New),
		},
		{
			Name:         "GitHubActionsProvider",
			Label:        github.ActionsServiceName,
			Capabilities: []provider.Capability{provider.CapabilityCI},
			New:          construct(github.NewActions),
		},
		{
			Name:         "GitLabProvider",
			Label:        gitlab.ServiceName,
			Capabilities: []provider.Capability{provider.CapabilityGit},
			Infer:        gitlab.Infer,
			New:          construct(gitlab.New),
		},
		{
			Name:         "GitLabCIProvider",
			Label:        gitlab.CIServiceName,
			Capabilities: []provider.Capability{provider.CapabilityCI},
			New:          construct(gitlab.NewCI),
		},
		{
			Name:         "BitbucketProvider",
			Label:        bitbucket.ServiceName,
			Capabilities: []provider.Capability{provider.CapabilityGit},
			Infer:        bitbucket.Infer,
			New:          construct(bitbucket.New),
		},
		{
			Name:         "CircleCIProvider",
			Label:        circleci.ServiceName,
			Capabilities: []provider.Capability{provider.CapabilityCI},
			New:          construct(circleci.New),
		},
		{
			Name:         "PantheonProvider",
			Label:        pantheon.ServiceName,
			Capabilities: []provider.Capability{provider.CapabilitySite},
			New:          construct(pantheon.New),
		},
	}
}

// construct adapts a concrete constructor to the registration signature
// without leaking a typed nil on error.
func construct[T provider.Provider](fn func(provider.Options) (T, error)) func(provider.Options) (provider.Provider, error) {
	return func(opts provider.Options) (provider.Provider, error) {
		p, err := fn(opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}
