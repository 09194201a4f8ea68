package state

// RepositoryEnvironment is the environment owned by a git provider.
//
// Providers name their primary secret differently (GITHUB_TOKEN,
// GITLAB_TOKEN, BITBUCKET_PASS), so the token key is mutable.
type RepositoryEnvironment struct {
	// Service is the git provider name.
	Service string

	// ProjectID is the "org/repo" identifier of the repository. It is not
	// published.
	ProjectID string

	tokenKey string
	token    string
	extra    GenericEnvironment
}

// NewRepositoryEnvironment creates a repository environment whose token is
// published under tokenKey.
func NewRepositoryEnvironment(service, tokenKey string) *RepositoryEnvironment {
	return &RepositoryEnvironment{
		Service:  service,
		tokenKey: tokenKey,
		extra:    GenericEnvironment{service: service},
	}
}

// ServiceName implements Environment.
func (e *RepositoryEnvironment) ServiceName() string {
	return e.Service
}

// TokenKey returns the key the token is published under.
func (e *RepositoryEnvironment) TokenKey() string {
	return e.tokenKey
}

// Token returns the provider token.
func (e *RepositoryEnvironment) Token() string {
	return e.token
}

// SetToken stores the token, optionally renaming its key.
func (e *RepositoryEnvironment) SetToken(key, value string) {
	if key != "" {
		e.tokenKey = key
	}
	e.token = value
}

// Get returns a published value by key.
func (e *RepositoryEnvironment) Get(key string) string {
	if key == e.tokenKey {
		return e.token
	}
	return e.extra.Get(key)
}

// Set implements Environment. The token key is always secret.
func (e *RepositoryEnvironment) Set(key, value string) error {
	if key == e.tokenKey && key != "" {
		e.token = value
		return nil
	}
	return e.extra.Set(key, value)
}

// SetSecret assigns an additional secret variable, such as a username
// paired with the token.
func (e *RepositoryEnvironment) SetSecret(key, value string) error {
	if key == e.tokenKey && key != "" {
		e.token = value
		return nil
	}
	return e.extra.SetSecret(key, value)
}

// Vars implements Environment.
func (e *RepositoryEnvironment) Vars() []Var {
	var out []Var
	if e.tokenKey != "" && e.token != "" {
		out = append(out, Var{Key: e.tokenKey, Value: e.token, Secret: true})
	}
	return append(out, e.extra.Vars()...)
}
