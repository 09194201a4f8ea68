package state

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Published keys of a SiteEnvironment.
const (
	KeySiteName      = "TERMINUS_SITE"
	KeyMachineToken  = "TERMINUS_TOKEN"
	KeyTestSiteName  = "TEST_SITE_NAME"
	KeyAdminEmail    = "ADMIN_EMAIL"
	KeyAdminPassword = "ADMIN_PASSWORD"
	KeyGitEmail      = "GIT_EMAIL"
)

// passwordAlphabet must stay free of shell metacharacters.
const passwordAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// GeneratedPasswordLength is the length of generated admin passwords.
const GeneratedPasswordLength = 16

// SiteEnvironment is the environment owned by the site provider.
type SiteEnvironment struct {
	Service       string
	SiteName      string
	MachineToken  string
	TestSiteName  string
	AdminEmail    string
	AdminPassword string
	GitEmail      string
}

type siteField struct {
	key    string
	secret bool
	ptr    func(e *SiteEnvironment) *string
}

var siteFields = []siteField{
	{key: KeySiteName, ptr: func(e *SiteEnvironment) *string { return &e.SiteName }},
	{key: KeyMachineToken, secret: true, ptr: func(e *SiteEnvironment) *string { return &e.MachineToken }},
	{key: KeyTestSiteName, ptr: func(e *SiteEnvironment) *string { return &e.TestSiteName }},
	{key: KeyAdminEmail, ptr: func(e *SiteEnvironment) *string { return &e.AdminEmail }},
	{key: KeyAdminPassword, secret: true, ptr: func(e *SiteEnvironment) *string { return &e.AdminPassword }},
	{key: KeyGitEmail, ptr: func(e *SiteEnvironment) *string { return &e.GitEmail }},
}

// NewSiteEnvironment creates a site environment for service.
func NewSiteEnvironment(service string) *SiteEnvironment {
	return &SiteEnvironment{Service: service}
}

// ServiceName implements Environment.
func (e *SiteEnvironment) ServiceName() string {
	return e.Service
}

// Set implements Environment. Only the site keys are accepted.
func (e *SiteEnvironment) Set(key, value string) error {
	for _, f := range siteFields {
		if f.key == key {
			*f.ptr(e) = value
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not a site setting", ErrInvalidKey, key)
}

// Vars implements Environment.
func (e *SiteEnvironment) Vars() []Var {
	var out []Var
	for _, f := range siteFields {
		if v := *f.ptr(e); v != "" {
			out = append(out, Var{Key: f.key, Value: v, Secret: f.secret})
		}
	}
	return out
}

// EnsureAdminPassword generates an admin password when none was supplied.
func (e *SiteEnvironment) EnsureAdminPassword() error {
	if e.AdminPassword != "" {
		return nil
	}
	pw, err := nanoid.Generate(passwordAlphabet, GeneratedPasswordLength)
	if err != nil {
		return fmt.Errorf("generate admin password: %w", err)
	}
	e.AdminPassword = pw
	return nil
}
