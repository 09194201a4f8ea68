package multidev

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/randalmurphal/buildtools/pr"
)

func envs(names ...string) []Environment {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Environment, len(names))
	for i, n := range names {
		out[i] = Environment{Name: n, Created: base.Add(time.Duration(i) * time.Hour)}
	}
	return out
}

func union(a, b []string) []string {
	out := append(append([]string(nil), a...), b...)
	slices.Sort(out)
	return out
}

func TestEligibleIfClosedPRExists(t *testing.T) {
	r := NewRetention("pr-", envs("pr-1", "pr-2", "pr-3"))
	lister := &pr.MockLister{Pages: [][]pr.PullRequestInfo{{
		{Number: 1, Closed: false},
		{Number: 2, Closed: true},
		{Number: 3, Closed: false},
	}}}

	if err := r.EligibleIfClosedPRExists(context.Background(), lister, "org/repo"); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"pr-2"}, r.Eligible()); diff != "" {
		t.Errorf("Eligible() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pr-1", "pr-3"}, r.Retain()); diff != "" {
		t.Errorf("Retain() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pr-1", "pr-2", "pr-3"}, union(r.Eligible(), r.Retain())); diff != "" {
		t.Errorf("eligible ∪ retain mismatch (-want +got):\n%s", diff)
	}
	if !r.IsEligible("pr-2") || r.IsEligible("pr-1") {
		t.Error("IsEligible disagrees with Eligible()")
	}
	if lister.State != pr.StateAll || lister.ProjectID != "org/repo" {
		t.Errorf("lister called with %q, %q", lister.ProjectID, lister.State)
	}
}

func TestEligibleIfClosedPRExists_StopsPagingWhenDone(t *testing.T) {
	r := NewRetention("ci-", envs("ci-10", "ci-9"))
	lister := &pr.MockLister{Pages: [][]pr.PullRequestInfo{
		{{Number: 11}, {Number: 10, Closed: true}},
		{{Number: 9, Closed: true}, {Number: 8}},
		{{Number: 7}},
		{{Number: 6}},
	}}

	if err := r.EligibleIfClosedPRExists(context.Background(), lister, "o/r"); err != nil {
		t.Fatal(err)
	}
	if lister.Fetched != 2 {
		t.Errorf("fetched %d pages, want 2", lister.Fetched)
	}
	if diff := cmp.Diff([]string{"ci-10", "ci-9"}, r.Eligible()); diff != "" {
		t.Errorf("Eligible() mismatch (-want +got):\n%s", diff)
	}
}

func TestEligibleIfClosedPRExists_UnmatchedEnvironmentsRetained(t *testing.T) {
	r := NewRetention("pr-", envs("pr-1", "pr-99", "pr-feature"))
	lister := &pr.MockLister{Pages: [][]pr.PullRequestInfo{{{Number: 1, Closed: true}}}}

	if err := r.EligibleIfClosedPRExists(context.Background(), lister, "o/r"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"pr-99", "pr-feature"}, r.Examining()); diff != "" {
		t.Errorf("Examining() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pr-99", "pr-feature"}, r.Retain()); diff != "" {
		t.Errorf("Retain() mismatch (-want +got):\n%s", diff)
	}
}

func TestEligibleIfClosedPRExists_Error(t *testing.T) {
	r := NewRetention("pr-", envs("pr-1"))
	boom := errors.New("boom")
	err := r.EligibleIfClosedPRExists(context.Background(), &pr.MockLister{Err: boom}, "o/r")
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}
	if diff := cmp.Diff([]string{"pr-1"}, r.Retain()); diff != "" {
		t.Errorf("Retain() after failure mismatch (-want +got):\n%s", diff)
	}
}

func TestEligibleIfClosedPRExists_NothingToExamine(t *testing.T) {
	r := NewRetention("pr-", nil)
	lister := &pr.MockLister{Pages: [][]pr.PullRequestInfo{{{Number: 1}}}}
	if err := r.EligibleIfClosedPRExists(context.Background(), lister, "o/r"); err != nil {
		t.Fatal(err)
	}
	if lister.Fetched != 0 {
		t.Errorf("fetched %d pages with nothing to examine", lister.Fetched)
	}
}

func TestEligibleIfOldest(t *testing.T) {
	// Listed newest-first to show ordering comes from creation time.
	all := envs("e1", "e2", "e3", "e4", "e5")
	slices.Reverse(all)
	r := NewRetention("e", all)

	r.EligibleIfOldest(2)

	if diff := cmp.Diff([]string{"e1", "e2", "e3"}, sorted(r.Eligible())); diff != "" {
		t.Errorf("Eligible() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"e4", "e5"}, sorted(r.Retain())); diff != "" {
		t.Errorf("Retain() mismatch (-want +got):\n%s", diff)
	}
}

func TestEligibleIfOldest_Bounds(t *testing.T) {
	tests := []struct {
		name         string
		keep         int
		wantEligible []string
	}{
		{name: "keep more than exist", keep: 10, wantEligible: nil},
		{name: "keep all", keep: 3, wantEligible: nil},
		{name: "keep none", keep: 0, wantEligible: []string{"a1", "a2", "a3"}},
		{name: "negative keep", keep: -1, wantEligible: []string{"a1", "a2", "a3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRetention("a", envs("a1", "a2", "a3"))
			r.EligibleIfOldest(tt.keep)
			if diff := cmp.Diff(tt.wantEligible, r.Eligible()); diff != "" {
				t.Errorf("Eligible() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRulesCombine(t *testing.T) {
	r := NewRetention("pr-", envs("pr-1", "pr-2", "pr-3", "pr-4"))
	lister := &pr.MockLister{Pages: [][]pr.PullRequestInfo{{{Number: 4}}}}
	if err := r.EligibleIfClosedPRExists(context.Background(), lister, "o/r"); err != nil {
		t.Fatal(err)
	}

	// pr-4 is already retained; the oldest rule only sees pr-1..pr-3.
	r.EligibleIfOldest(1)

	if diff := cmp.Diff([]string{"pr-1", "pr-2"}, r.Eligible()); diff != "" {
		t.Errorf("Eligible() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pr-3", "pr-4"}, r.Retain()); diff != "" {
		t.Errorf("Retain() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"pr-3"}, r.Examining()); diff != "" {
		t.Errorf("Examining() mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRetention_DropsDuplicates(t *testing.T) {
	r := NewRetention("pr-", append(envs("pr-1"), envs("pr-1")...))
	if diff := cmp.Diff([]string{"pr-1"}, r.Examining()); diff != "" {
		t.Errorf("Examining() mismatch (-want +got):\n%s", diff)
	}
}

func TestFilterByPattern(t *testing.T) {
	got := FilterByPattern(envs("dev", "pr-1", "test", "pr-22", "live"), "pr-")
	var names []string
	for _, e := range got {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"pr-1", "pr-22"}, names); diff != "" {
		t.Errorf("FilterByPattern mismatch (-want +got):\n%s", diff)
	}
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	slices.Sort(out)
	return out
}
