package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval is the fixed delay between polls.
const DefaultInterval = 5 * time.Second

// Outcome is the state a Wait ended in.
type Outcome int

const (
	// OutcomePolling is returned alongside an error.
	OutcomePolling Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
	OutcomeTimedOut
	OutcomeNotFoundExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomePolling:
		return "polling"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeNotFoundExhausted:
		return "not found"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// OK reports whether the workflow was confirmed successful.
func (o Outcome) OK() bool {
	return o == OutcomeSucceeded
}

// Options describes what to wait for.
type Options struct {
	// Since excludes workflows created earlier, such as a previous run of
	// the same operation.
	Since time.Time

	// Description must equal the workflow's description.
	Description string

	// MaxWait bounds total elapsed time. Zero waits indefinitely.
	MaxWait time.Duration

	// MaxNotFoundAttempts bounds consecutive polls that find no match.
	// Zero disables the bound.
	MaxNotFoundAttempts int

	// Interval between polls; defaults to DefaultInterval.
	Interval time.Duration
}

// PollerConfig configures a Poller. Zero values select the real clock.
type PollerConfig struct {
	Now    func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *slog.Logger
}

// Poller waits for remote workflows.
type Poller struct {
	lister Lister
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// NewPoller creates a Poller reading from lister.
func NewPoller(lister Lister, cfg PollerConfig) *Poller {
	p := &Poller{
		lister: lister,
		now:    cfg.Now,
		sleep:  cfg.Sleep,
		logger: cfg.Logger,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Wait polls until the described workflow finishes or a bound is hit.
func (p *Poller) Wait(ctx context.Context, opts Options) (Outcome, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := p.logger.With("workflow", opts.Description)

	start := p.now()
	notFound := 0
	for {
		records, err := p.lister.RecentWorkflows(ctx)
		if err != nil {
			return OutcomePolling, fmt.Errorf("list workflows: %w", err)
		}

		if rec, ok := Find(records, opts.Since, opts.Description); ok {
			notFound = 0
			if rec.Finished() {
				if rec.Succeeded() {
					logger.Info("workflow succeeded", "id", rec.ID)
					return OutcomeSucceeded, nil
				}
				logger.Warn("workflow failed", "id", rec.ID, "result", rec.Result)
				return OutcomeFailed, nil
			}
			logger.Info("workflow still running", "id", rec.ID, "elapsed", p.now().Sub(start).Round(time.Second))
		} else {
			notFound++
			logger.Debug("workflow not found yet", "attempt", notFound)
			if opts.MaxNotFoundAttempts > 0 && notFound >= opts.MaxNotFoundAttempts {
				logger.Warn("workflow never appeared", "attempts", notFound)
				return OutcomeNotFoundExhausted, nil
			}
		}

		if err := p.sleep(ctx, interval); err != nil {
			return OutcomePolling, err
		}
		if opts.MaxWait > 0 && p.now().Sub(start) > opts.MaxWait {
			logger.Warn("timed out waiting for workflow", "max_wait", opts.MaxWait)
			return OutcomeTimedOut, nil
		}
	}
}

// sleepContext waits for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
