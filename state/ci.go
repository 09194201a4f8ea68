package state

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// Well-known owner names.
const (
	OwnerRepository   = "repository"
	OwnerSite         = "site"
	OwnerCLU          = "clu"
	OwnerTempSettings = "temp_settings"
)

// CIState owns the environments of every provider taking part in a run.
type CIState struct {
	owners []string
	envs   map[string]Environment
	logger *slog.Logger
}

// NewCIState creates an empty state. A nil logger uses slog.Default().
func NewCIState(logger *slog.Logger) *CIState {
	if logger == nil {
		logger = slog.Default()
	}
	return &CIState{
		envs:   make(map[string]Environment),
		logger: logger,
	}
}

// StoreState registers env under owner. Storing an owner again replaces its
// environment and moves it to the end of the merge order.
func (s *CIState) StoreState(owner string, env Environment) {
	if _, ok := s.envs[owner]; ok {
		s.owners = slices.DeleteFunc(s.owners, func(o string) bool { return o == owner })
	}
	s.owners = append(s.owners, owner)
	s.envs[owner] = env
}

// State returns the environment stored for owner.
func (s *CIState) State(owner string) (Environment, bool) {
	env, ok := s.envs[owner]
	return env, ok
}

// Owners returns owner names in the order they were stored.
func (s *CIState) Owners() []string {
	return slices.Clone(s.owners)
}

// Set assigns key on owner's environment. It fails with ErrUnknownOwner if
// owner was never stored.
func (s *CIState) Set(owner, key, value string) error {
	env, ok := s.envs[owner]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOwner, owner)
	}
	return env.Set(key, value)
}

// Vars merges every owner's variables in store order. When two owners
// publish the same key, the owner stored later wins and keeps the key's
// first position.
func (s *CIState) Vars() []Var {
	index := make(map[string]int)
	var out []Var
	for _, owner := range s.owners {
		for _, v := range s.envs[owner].Vars() {
			if i, ok := index[v.Key]; ok {
				out[i] = v
				continue
			}
			index[v.Key] = len(out)
			out = append(out, v)
		}
	}
	return out
}

// AggregateState flattens every owner's variables into one map. This is
// the exact set pushed to the CI server; later-stored owners win on
// collision. Each collision is logged once per call.
func (s *CIState) AggregateState() map[string]string {
	collisions := s.Collisions()
	for _, key := range slices.Sorted(maps.Keys(collisions)) {
		owners := collisions[key]
		s.logger.Warn("CI variable defined by more than one owner",
			"key", key, "owners", owners, "winner", owners[len(owners)-1])
	}
	vars := s.Vars()
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		out[v.Key] = v.Value
	}
	return out
}

// Secrets returns the aggregated keys flagged as secrets, in merge order.
func (s *CIState) Secrets() []string {
	var keys []string
	for _, v := range s.Vars() {
		if v.Secret {
			keys = append(keys, v.Key)
		}
	}
	return keys
}

// Collisions maps each key published by more than one owner to those
// owners, in store order.
func (s *CIState) Collisions() map[string][]string {
	seen := make(map[string][]string)
	for _, owner := range s.owners {
		for _, v := range s.envs[owner].Vars() {
			seen[v.Key] = append(seen[v.Key], owner)
		}
	}
	out := make(map[string][]string)
	for key, owners := range seen {
		if len(owners) > 1 {
			out[key] = owners
		}
	}
	return out
}
