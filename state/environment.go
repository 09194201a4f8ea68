// Package state holds the provider environments whose values are published
// to the CI server.
//
// Each provider owns one Environment. CIState collects them by owner name
// and flattens them into the variable set a CI provider pushes.
package state

import (
	"fmt"
)

// Var is one published variable.
type Var struct {
	Key   string
	Value string

	// Secret marks values the CI server must store as protected secrets.
	Secret bool
}

// Environment is a provider-owned set of variables.
type Environment interface {
	// ServiceName identifies the owning provider (e.g., "github").
	ServiceName() string

	// Vars returns the non-empty variables in publication order.
	Vars() []Var

	// Set assigns a variable by its published key.
	Set(key, value string) error
}

// GenericEnvironment is an ordered key/value environment for owners that
// have no fixed shape, such as temporary settings.
type GenericEnvironment struct {
	service string
	vars    []Var
}

// NewGenericEnvironment creates an empty environment for service.
func NewGenericEnvironment(service string) *GenericEnvironment {
	return &GenericEnvironment{service: service}
}

// ServiceName implements Environment.
func (e *GenericEnvironment) ServiceName() string {
	return e.service
}

// Set implements Environment. An existing key keeps its position and
// secret flag.
func (e *GenericEnvironment) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	}
	for i := range e.vars {
		if e.vars[i].Key == key {
			e.vars[i].Value = value
			return nil
		}
	}
	e.vars = append(e.vars, Var{Key: key, Value: value})
	return nil
}

// SetSecret assigns key and flags it as a secret.
func (e *GenericEnvironment) SetSecret(key, value string) error {
	if err := e.Set(key, value); err != nil {
		return err
	}
	for i := range e.vars {
		if e.vars[i].Key == key {
			e.vars[i].Secret = true
		}
	}
	return nil
}

// Get returns the value for key, or "" when unset.
func (e *GenericEnvironment) Get(key string) string {
	for _, v := range e.vars {
		if v.Key == key {
			return v.Value
		}
	}
	return ""
}

// Vars implements Environment.
func (e *GenericEnvironment) Vars() []Var {
	out := make([]Var, 0, len(e.vars))
	for _, v := range e.vars {
		if v.Value != "" {
			out = append(out, v)
		}
	}
	return out
}
