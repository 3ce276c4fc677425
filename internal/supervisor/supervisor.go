// Package supervisor restarts a long-running task when it fails,
// backing off between attempts and giving up after a bounded number of
// consecutive failures. Consumer-role conflicts get their own shorter
// budget: a second poller on the same token is a deployment mistake
// that retries will not fix, so the supervisor fails fast instead of
// fighting it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shelfbot/shelfbot/internal/core/domain"
	"github.com/shelfbot/shelfbot/internal/logger"
)

// Task is a run-to-completion unit of work. A nil return means clean
// shutdown and stops the supervisor.
type Task func(ctx context.Context) error

// Policy bounds the restart behaviour.
type Policy struct {
	// MaxAttempts is the number of consecutive failures tolerated
	// before giving up. Zero means DefaultMaxAttempts.
	MaxAttempts int

	// ConflictAttempts bounds retries for consumer-role conflicts
	// specifically. Zero means DefaultConflictAttempts.
	ConflictAttempts int

	// BaseDelay is the first backoff interval; it doubles per failure
	// up to MaxDelay. Zeros mean the defaults.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// HealthyUptime is how long a run must survive for the failure
	// counters and backoff to reset. Without it, sparse failures spread
	// over days would still eat into the same budget. Zero means
	// DefaultHealthyUptime.
	HealthyUptime time.Duration
}

// Defaults applied when a Policy field is zero.
const (
	DefaultMaxAttempts      = 5
	DefaultConflictAttempts = 2
	DefaultBaseDelay        = 2 * time.Second
	DefaultMaxDelay         = time.Minute
	DefaultHealthyUptime    = time.Minute
)

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.ConflictAttempts <= 0 {
		p.ConflictAttempts = DefaultConflictAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.HealthyUptime <= 0 {
		p.HealthyUptime = DefaultHealthyUptime
	}
	return p
}

// Supervisor runs one named task under a restart policy.
type Supervisor struct {
	name   string
	policy Policy
	task   Task

	// sleep and now are replaceable for tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates a supervisor for the named task.
func New(name string, policy Policy, task Task) *Supervisor {
	return &Supervisor{
		name:   name,
		policy: policy.normalized(),
		task:   task,
		sleep:  sleepCtx,
		now:    time.Now,
	}
}

// Run executes the task, restarting on failure per the policy. It
// returns nil when the task completes cleanly, ctx.Err() when the
// context ends, and the last task error once the failure budget is
// spent.
func (s *Supervisor) Run(ctx context.Context) error {
	failures := 0
	conflicts := 0
	delay := s.policy.BaseDelay

	for {
		started := s.now()
		err := s.runOnce(ctx)
		if err == nil {
			logger.Info("%s: finished cleanly", s.name)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A run that stayed up long enough earns a fresh budget; only
		// consecutive rapid failures should exhaust it.
		if s.now().Sub(started) >= s.policy.HealthyUptime {
			failures = 0
			conflicts = 0
			delay = s.policy.BaseDelay
		}

		if errors.Is(err, domain.ErrConsumerConflict) {
			conflicts++
			logger.Warn("%s: consumer conflict (attempt %d/%d): %v",
				s.name, conflicts, s.policy.ConflictAttempts, err)
			if conflicts >= s.policy.ConflictAttempts {
				return fmt.Errorf("%s: another consumer instance is active: %w", s.name, err)
			}
		} else {
			failures++
			logger.Warn("%s: failed (attempt %d/%d): %v",
				s.name, failures, s.policy.MaxAttempts, err)
			if failures >= s.policy.MaxAttempts {
				return fmt.Errorf("%s: giving up after %d failures: %w", s.name, failures, err)
			}
		}

		if sleepErr := s.sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
		delay *= 2
		if delay > s.policy.MaxDelay {
			delay = s.policy.MaxDelay
		}
	}
}

// runOnce converts a task panic into an error so one bad update cannot
// take the whole process down outside the restart budget.
func (s *Supervisor) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", s.name, r)
		}
	}()
	return s.task(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
