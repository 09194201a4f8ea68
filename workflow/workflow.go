package workflow

import (
	"context"
	"time"
)

// Workflow results as reported by the hosting provider.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
)

// Record is one remote workflow.
type Record struct {
	ID          string
	Description string
	CreatedAt   time.Time
	FinishedAt  time.Time // Zero while running
	Result      string    // Empty while running
}

// Finished reports whether the workflow reached a terminal state.
func (r Record) Finished() bool {
	return r.Result != "" || !r.FinishedAt.IsZero()
}

// Succeeded reports whether the workflow finished successfully.
func (r Record) Succeeded() bool {
	return r.Result == ResultSucceeded
}

// Lister returns recent workflows, newest first.
type Lister interface {
	RecentWorkflows(ctx context.Context) ([]Record, error)
}

// Find returns the newest record created at or after since whose
// description matches exactly.
func Find(records []Record, since time.Time, description string) (Record, bool) {
	for _, r := range records {
		if r.CreatedAt.Before(since) {
			continue
		}
		if r.Description == description {
			return r, true
		}
	}
	return Record{}, false
}
