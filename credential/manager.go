package credential

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Source is the read side of the manager handed to providers.
type Source interface {
	Has(id string) bool
	Fetch(id string) string
}

// OptionSource exposes parsed command-line options.
type OptionSource interface {
	Lookup(key string) (string, bool)
}

// OptionMap is an OptionSource backed by a map.
type OptionMap map[string]string

// Lookup implements OptionSource.
func (m OptionMap) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// UserID scopes the persistent cache. Empty disables persistence.
	UserID string

	// Store is the persistent layer. Nil disables persistence.
	Store Store

	// LookupEnv resolves environment variables. Nil disables the
	// environment layer.
	LookupEnv func(key string) (string, bool)

	// MaxAttempts bounds prompting per request. Zero means unbounded.
	MaxAttempts int

	Logger *slog.Logger
}

// Manager negotiates credentials from the environment, CLI options, the
// cache and interactive prompts.
type Manager struct {
	cfg       ManagerConfig
	requests  []*Request
	byID      map[string]*Request
	transient map[string]string
	logger    *slog.Logger
}

// NewManager creates a Manager.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cfg:       cfg,
		byID:      make(map[string]*Request),
		transient: make(map[string]string),
		logger:    logger,
	}
}

// Requests returns registered requests in registration order.
func (m *Manager) Requests() []*Request {
	return append([]*Request(nil), m.requests...)
}

// Request returns the registered request with id.
func (m *Manager) Request(id string) (*Request, bool) {
	r, ok := m.byID[id]
	return r, ok
}

// AddRequest registers r, and its dependents ahead of it, then resolves
// any of them supplied by the environment. It never prompts.
func (m *Manager) AddRequest(r *Request) {
	for _, dep := range r.Dependents {
		m.AddRequest(dep)
	}
	if _, ok := m.byID[r.ID]; ok {
		return
	}
	m.requests = append(m.requests, r)
	m.byID[r.ID] = r
	m.applyEnv(r)
}

func (m *Manager) persistent() bool {
	return m.cfg.UserID != "" && m.cfg.Store != nil
}

func (m *Manager) applyEnv(r *Request) {
	if m.cfg.LookupEnv == nil {
		return
	}
	name := r.EnvironmentVariable()
	if v, ok := m.cfg.LookupEnv(name); ok {
		if v = strings.TrimSpace(v); v != "" {
			m.transient[r.ID] = v
			m.logger.Debug("credential resolved", "id", r.ID, "source", "env", "variable", name)
		}
	}
}

// Has reports whether id is cached in either layer.
func (m *Manager) Has(id string) bool {
	if _, ok := m.transient[id]; ok {
		return true
	}
	_, ok := m.lookupPersistent(id)
	return ok
}

// Fetch returns the trimmed value for id, or "" when absent. Values read
// from the persistent layer are memoized.
func (m *Manager) Fetch(id string) string {
	if v, ok := m.transient[id]; ok {
		return v
	}
	v, ok := m.lookupPersistent(id)
	if !ok {
		return ""
	}
	v = strings.TrimSpace(v)
	m.transient[id] = v
	m.logger.Debug("credential resolved", "id", id, "source", "cache")
	return v
}

func (m *Manager) lookupPersistent(id string) (string, bool) {
	if !m.persistent() {
		return "", false
	}
	v, ok, err := m.cfg.Store.Get(m.cfg.UserID, id)
	if err != nil {
		m.logger.Warn("credential cache unavailable", "id", id, "error", err)
		return "", false
	}
	return v, ok
}

// Store caches value for id in both layers.
func (m *Manager) Store(id, value string) error {
	value = strings.TrimSpace(value)
	m.transient[id] = value
	if !m.persistent() {
		return nil
	}
	if err := m.cfg.Store.Set(m.cfg.UserID, id, value); err != nil {
		return fmt.Errorf("cache credential %s: %w", id, err)
	}
	return nil
}

// Remove drops id from both layers.
func (m *Manager) Remove(id string) error {
	delete(m.transient, id)
	if !m.persistent() {
		return nil
	}
	if err := m.cfg.Store.Remove(m.cfg.UserID, id); err != nil {
		return fmt.Errorf("remove cached credential %s: %w", id, err)
	}
	return nil
}

// DependentCredentials returns the cached values of r's dependents.
func (m *Manager) DependentCredentials(r *Request) map[string]string {
	deps := make(map[string]string, len(r.Dependents))
	for _, dep := range r.Dependents {
		deps[dep.ID] = m.Fetch(dep.ID)
	}
	return deps
}

// ShouldAsk reports whether r must be prompted for: it is absent and
// required, or its cached value no longer validates.
func (m *Manager) ShouldAsk(ctx context.Context, r *Request) bool {
	if !m.Has(r.ID) {
		return r.Required
	}
	return !m.validate(ctx, r, m.Fetch(r.ID))
}

func (m *Manager) validate(ctx context.Context, r *Request, value string) bool {
	ok, err := r.check(ctx, value, m.DependentCredentials(r))
	if err != nil {
		m.logger.Debug("credential validation failed", "id", r.ID, "error", err)
		return false
	}
	return ok
}

// SetFromOptions stores every request whose option is set and non-empty,
// overriding environment values.
func (m *Manager) SetFromOptions(opts OptionSource) error {
	for _, r := range m.requests {
		v, ok := opts.Lookup(r.Key())
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := m.Store(r.ID, v); err != nil {
			return err
		}
		m.logger.Debug("credential resolved", "id", r.ID, "source", "option")
	}
	return nil
}

// ClearAll removes every registered credential from both layers, then
// re-applies environment values.
func (m *Manager) ClearAll() error {
	for _, r := range m.requests {
		if err := m.Remove(r.ID); err != nil {
			return err
		}
	}
	for _, r := range m.requests {
		m.applyEnv(r)
	}
	return nil
}

// Ask prompts, in registration order, for every request ShouldAsk selects.
// A value that fails validation is asked for again together with all of
// the request's dependents. The loop ends on success, on console or
// context errors, or after MaxAttempts tries when that bound is set.
func (m *Manager) Ask(ctx context.Context, console Console) error {
	for _, r := range m.requests {
		if !m.ShouldAsk(ctx, r) {
			continue
		}
		if err := m.askOne(ctx, console, r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) askOne(ctx context.Context, console Console, r *Request) error {
	if r.Instructions != "" {
		console.WriteLine(r.Instructions)
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		value, err := console.AskHidden(r.PromptText())
		if err != nil {
			return fmt.Errorf("read %s: %w", r.ID, err)
		}
		value = strings.TrimSpace(value)

		if value == "" && !r.Required {
			return nil
		}
		if value != "" && m.validate(ctx, r, value) {
			m.logger.Debug("credential resolved", "id", r.ID, "source", "prompt")
			return m.Store(r.ID, value)
		}

		msg := r.FailureMessage
		if msg == "" {
			msg = fmt.Sprintf("The provided %s is not valid.", r.ID)
		}
		console.WriteLine(msg)

		if m.cfg.MaxAttempts > 0 && attempt >= m.cfg.MaxAttempts {
			return fmt.Errorf("%s: %w", r.ID, ErrTooManyAttempts)
		}

		for _, dep := range r.Dependents {
			if err := m.askOne(ctx, console, dep); err != nil {
				return err
			}
		}
	}
}
