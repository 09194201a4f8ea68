package pr

import "context"

// MockLister is a Lister that serves fixed pages.
type MockLister struct {
	Pages [][]PullRequestInfo
	Err   error

	// Fetched counts pages handed to the callback.
	Fetched int

	// ProjectID and State record the last call.
	ProjectID string
	State     State
}

// ListPullRequests implements Lister.
func (m *MockLister) ListPullRequests(ctx context.Context, projectID string, state State, fn PageFunc) error {
	m.ProjectID = projectID
	m.State = state
	if m.Err != nil {
		return m.Err
	}
	for _, page := range m.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Fetched++
		if !fn(page) {
			return nil
		}
	}
	return nil
}
