package config

import (
	"fmt"
	"strconv"
	"time"
)

// Application identity.
const (
	AppName         = "build-tools"
	EnvPrefix       = "BUILD_TOOLS_"
	LocalConfigName = ".build-tools.yaml"
)

// Configuration keys.
const (
	KeyPageSize                 = "provider_page_size"
	KeyWorkflowMaxWait          = "workflow_max_wait"
	KeyWorkflowNotFoundAttempts = "workflow_not_found_attempts"
	KeyCredentialCache          = "credential_cache"
	KeyCredentialMaxAttempts    = "credential_max_attempts"
	KeyMultidevPattern          = "multidev_pattern"
	KeyMultidevKeep             = "multidev_keep"
	KeyGitHubAPIURL             = "github_api_url"
	KeyGitLabURL                = "gitlab_url"
	KeyBitbucketAPIURL          = "bitbucket_api_url"
	KeyCircleAPIURL             = "circle_api_url"
	KeyPantheonAPIURL           = "pantheon_api_url"
)

// Defaults returns the built-in value of every key.
func Defaults() map[string]string {
	return map[string]string{
		KeyPageSize:                 "",
		KeyWorkflowMaxWait:          "10m",
		KeyWorkflowNotFoundAttempts: "0",
		KeyCredentialCache:          "true",
		KeyCredentialMaxAttempts:    "0",
		KeyMultidevPattern:          "pr-",
		KeyMultidevKeep:             "0",
		KeyGitHubAPIURL:             "https://api.github.com/",
		KeyGitLabURL:                "https://gitlab.com",
		KeyBitbucketAPIURL:          "https://api.bitbucket.org/2.0/",
		KeyCircleAPIURL:             "https://circleci.com/api/v2/",
		KeyPantheonAPIURL:           "https://terminus.pantheon.io/api/",
	}
}

// ValidKeys lists every key, in declaration order.
func ValidKeys() []string {
	return []string{
		KeyPageSize, KeyWorkflowMaxWait, KeyWorkflowNotFoundAttempts,
		KeyCredentialCache, KeyCredentialMaxAttempts,
		KeyMultidevPattern, KeyMultidevKeep,
		KeyGitHubAPIURL, KeyGitLabURL, KeyBitbucketAPIURL, KeyCircleAPIURL, KeyPantheonAPIURL,
	}
}

// NewAppResolver returns the resolver for this application.
func NewAppResolver(lookupEnv func(string) (string, bool)) *Resolver {
	return NewResolver(ResolverConfig{
		EnvPrefix:       EnvPrefix,
		LookupEnv:       lookupEnv,
		GlobalConfigDir: AppName,
		LocalConfigName: LocalConfigName,
		Defaults:        Defaults(),
		ValidGlobalKeys: ValidKeys(),
		ValidLocalKeys:  ValidKeys(),
	})
}

// AppSaveConfig returns the writer matching NewAppResolver.
func AppSaveConfig() SaveConfig {
	return SaveConfig{
		GlobalConfigDir: AppName,
		LocalConfigName: LocalConfigName,
		ValidGlobalKeys: ValidKeys(),
		ValidLocalKeys:  ValidKeys(),
	}
}

// Settings is the typed view of a resolved configuration.
type Settings struct {
	// PageSize overrides provider page sizes. Zero keeps provider defaults.
	PageSize int

	WorkflowMaxWait          time.Duration
	WorkflowNotFoundAttempts int

	// CredentialCache enables the on-disk credential store.
	CredentialCache bool

	// CredentialMaxAttempts bounds interactive re-prompts. Zero is unbounded.
	CredentialMaxAttempts int

	MultidevPattern string
	MultidevKeep    int

	GitHubAPIURL    string
	GitLabURL       string
	BitbucketAPIURL string
	CircleAPIURL    string
	PantheonAPIURL  string
}

// NewSettings parses resolved values. Errors name the offending key and
// where its value came from.
func NewSettings(c *Resolved) (Settings, error) {
	p := parser{c: c}
	s := Settings{
		PageSize:                 p.int(KeyPageSize),
		WorkflowMaxWait:          p.duration(KeyWorkflowMaxWait),
		WorkflowNotFoundAttempts: p.int(KeyWorkflowNotFoundAttempts),
		CredentialCache:          p.bool(KeyCredentialCache),
		CredentialMaxAttempts:    p.int(KeyCredentialMaxAttempts),
		MultidevPattern:          c.Get(KeyMultidevPattern),
		MultidevKeep:             p.int(KeyMultidevKeep),
		GitHubAPIURL:             c.Get(KeyGitHubAPIURL),
		GitLabURL:                c.Get(KeyGitLabURL),
		BitbucketAPIURL:          c.Get(KeyBitbucketAPIURL),
		CircleAPIURL:             c.Get(KeyCircleAPIURL),
		PantheonAPIURL:           c.Get(KeyPantheonAPIURL),
	}
	return s, p.err
}

type parser struct {
	c   *Resolved
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err != nil {
		return
	}
	value, src := p.c.GetWithSource(key)
	p.err = fmt.Errorf("invalid %s %q (from %s): %w", key, value, src, err)
}

func (p *parser) int(key string) int {
	v := p.c.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err == nil && n < 0 {
		err = fmt.Errorf("must not be negative")
	}
	if err != nil {
		p.fail(key, err)
		return 0
	}
	return n
}

func (p *parser) bool(key string) bool {
	v := p.c.Get(key)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
	}
	return b
}

func (p *parser) duration(key string) time.Duration {
	v := p.c.Get(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Bare numbers are seconds.
		secs, numErr := strconv.Atoi(v)
		if numErr != nil {
			p.fail(key, err)
			return 0
		}
		d = time.Duration(secs) * time.Second
	}
	return d
}
