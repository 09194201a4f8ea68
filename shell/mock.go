package shell

import (
	"context"
	"fmt"
	"strings"
)

// Call records one command run through MockRunner.
type Call struct {
	Dir  string
	Name string
	Args []string
}

// String returns the command line.
func (c Call) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

type mockResult struct {
	output string
	err    error
}

// MockRunner returns queued results in order and records every call.
type MockRunner struct {
	results []mockResult
	Calls   []Call
}

// NewMockRunner creates an empty MockRunner.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// AddOutput queues the result of the next call.
func (m *MockRunner) AddOutput(output string, err error) {
	m.results = append(m.results, mockResult{output: output, err: err})
}

// Run implements Runner.
func (m *MockRunner) Run(_ context.Context, dir, name string, args ...string) (string, error) {
	m.Calls = append(m.Calls, Call{Dir: dir, Name: name, Args: args})
	if len(m.results) == 0 {
		return "", fmt.Errorf("unexpected command: %s %s", name, strings.Join(args, " "))
	}
	r := m.results[0]
	m.results = m.results[1:]
	return r.output, r.err
}
