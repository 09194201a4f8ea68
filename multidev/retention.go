package multidev

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/randalmurphal/buildtools/pr"
)

// Environment is one existing multidev.
type Environment struct {
	Name    string
	Created time.Time
}

// FilterByPattern returns the environments whose name starts with pattern.
func FilterByPattern(envs []Environment, pattern string) []Environment {
	var out []Environment
	for _, e := range envs {
		if strings.HasPrefix(e.Name, pattern) {
			out = append(out, e)
		}
	}
	return out
}

// Retention partitions environments into eligible, retained and
// still-examining sets. The three sets are always disjoint and together
// hold exactly the environments the Retention was created with.
type Retention struct {
	pattern   string
	order     []string
	created   map[string]time.Time
	examining map[string]bool
	eligible  map[string]bool
	retain    map[string]bool
}

// NewRetention starts examining envs. pattern is the name prefix that,
// followed by a PR number, names a PR's environment.
func NewRetention(pattern string, envs []Environment) *Retention {
	r := &Retention{
		pattern:   pattern,
		created:   make(map[string]time.Time, len(envs)),
		examining: make(map[string]bool, len(envs)),
		eligible:  make(map[string]bool),
		retain:    make(map[string]bool),
	}
	for _, e := range envs {
		if _, dup := r.created[e.Name]; dup {
			continue
		}
		r.order = append(r.order, e.Name)
		r.created[e.Name] = e.Created
		r.examining[e.Name] = true
	}
	return r
}

// EnvironmentName returns the environment name for PR number.
func (r *Retention) EnvironmentName(number int) string {
	return r.pattern + strconv.Itoa(number)
}

// EligibleIfClosedPRExists classifies every examined environment whose
// PR is listed: closed PRs make it eligible, open ones retain it. Paging
// stops as soon as nothing is left to examine.
func (r *Retention) EligibleIfClosedPRExists(ctx context.Context, lister pr.Lister, projectID string) error {
	if len(r.examining) == 0 {
		return nil
	}
	err := lister.ListPullRequests(ctx, projectID, pr.StateAll, func(page []pr.PullRequestInfo) bool {
		for _, p := range page {
			name := r.EnvironmentName(p.Number)
			if !r.examining[name] {
				continue
			}
			delete(r.examining, name)
			if p.Closed {
				r.eligible[name] = true
			} else {
				r.retain[name] = true
			}
		}
		return len(r.examining) > 0
	})
	if err != nil {
		return fmt.Errorf("list pull requests for %s: %w", projectID, err)
	}
	return nil
}

// EligibleIfOldest makes every examined environment eligible except the
// newest keep. Ties on creation time keep the later-listed environment.
func (r *Retention) EligibleIfOldest(keep int) {
	remaining := r.Examining()
	slices.SortStableFunc(remaining, func(a, b string) int {
		return r.created[a].Compare(r.created[b])
	})
	if keep < 0 {
		keep = 0
	}
	if len(remaining) <= keep {
		return
	}
	for _, name := range remaining[:len(remaining)-keep] {
		delete(r.examining, name)
		r.eligible[name] = true
	}
}

// Eligible returns environments that may be deleted, in input order.
func (r *Retention) Eligible() []string {
	return r.collect(func(name string) bool { return r.eligible[name] })
}

// Retain returns environments that must be kept: those explicitly
// retained plus any still unclassified.
func (r *Retention) Retain() []string {
	return r.collect(func(name string) bool { return r.retain[name] || r.examining[name] })
}

// Examining returns environments not yet classified.
func (r *Retention) Examining() []string {
	return r.collect(func(name string) bool { return r.examining[name] })
}

// IsEligible reports whether name may be deleted.
func (r *Retention) IsEligible(name string) bool {
	return r.eligible[name]
}

func (r *Retention) collect(keep func(string) bool) []string {
	var out []string
	for _, name := range r.order {
		if keep(name) {
			out = append(out, name)
		}
	}
	return out
}
