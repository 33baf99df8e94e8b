package waiter

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	DefaultTimeout  = 75 * time.Minute
	DefaultInterval = 10 * time.Second
)

// Result describes how a wait ended.
type Result struct {
	Status  JobStatus
	Reached bool
	Polls   int
	Elapsed time.Duration
}

type Option func(*JobWaiter)

func WithTimeout(d time.Duration) Option {
	return func(w *JobWaiter) {
		if d > 0 {
			w.timeout = d
		}
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *JobWaiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithSoftCheck makes a not reached state a false Result instead of an error.
func WithSoftCheck() Option {
	return func(w *JobWaiter) {
		w.hardCheck = false
	}
}

func WithKillOnTimeout() Option {
	return func(w *JobWaiter) {
		w.killOnTimeout = true
	}
}

// WithBackOff replaces the constant poll interval. A backoff.Stop value falls back to the interval.
func WithBackOff(b func() backoff.BackOff) Option {
	return func(w *JobWaiter) {
		w.newBackOff = b
	}
}

func WithClock(c clock.Clock) Option {
	return func(w *JobWaiter) {
		w.clock = c
	}
}

// Observer is told about every finished WaitForState.
type Observer func(ctx context.Context, h JobHandle, res Result, err error)

func WithObserver(o Observer) Option {
	return func(w *JobWaiter) {
		w.observer = o
	}
}

// JobWaiter polls JobHandles until they reach a state of interest.
type JobWaiter struct {
	timeout       time.Duration
	interval      time.Duration
	hardCheck     bool
	killOnTimeout bool
	newBackOff    func() backoff.BackOff
	clock         clock.Clock
	observer      Observer
}

func New(opts ...Option) *JobWaiter {
	w := &JobWaiter{
		timeout:   DefaultTimeout,
		interval:  DefaultInterval,
		hardCheck: true,
		clock:     clock.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// With returns a copy of w with opts applied.
func (w *JobWaiter) With(opts ...Option) *JobWaiter {
	c := *w
	for _, opt := range opts {
		opt(&c)
	}
	return &c
}

func (w *JobWaiter) backOff() backoff.BackOff {
	if w.newBackOff != nil {
		return w.newBackOff()
	}
	return backoff.NewConstantBackOff(w.interval)
}

func (w *JobWaiter) WaitForCompletion(ctx context.Context, h JobHandle) (Result, error) {
	return w.WaitForState(ctx, h, StateCompleted)
}

// WaitForState polls h until it reports one of states. A terminal state that is
// not expected ends the wait with a JobFailedError.
func (w *JobWaiter) WaitForState(ctx context.Context, h JobHandle, states ...JobState) (Result, error) {
	res, err := w.waitForState(ctx, h, states)
	if w.observer != nil {
		w.observer(ctx, h, res, err)
	}
	return res, err
}

func (w *JobWaiter) waitForState(ctx context.Context, h JobHandle, states []JobState) (Result, error) {
	if len(states) == 0 {
		states = []JobState{StateCompleted}
	}

	log := zap.S().Named("job_waiter").With("job", h.ID())
	start := w.clock.Now()
	deadline := start.Add(w.timeout)
	bo := w.backOff()
	bo.Reset()

	result := Result{}
	log.Infow("waiting for job", "expected", states, "timeout", w.timeout)

	for {
		status, err := h.Status(ctx)
		result.Polls++
		result.Elapsed = w.clock.Since(start)

		switch {
		case err != nil && ctx.Err() != nil:
			return result, fmt.Errorf("waiting for job %s: %w", h.ID(), ctx.Err())
		case err != nil && IsPermanent(err):
			log.Errorw("failed to fetch job status", "error", err)
			return result, fmt.Errorf("fetching status of job %s: %w", h.ID(), err)
		case err != nil:
			log.Warnw("failed to fetch job status, retrying", "error", err, "poll", result.Polls)
		default:
			result.Status = status
			if slices.Contains(states, status.State) {
				result.Reached = true
				log.Infow("job reached expected state", "state", status.State, "polls", result.Polls, "elapsed", result.Elapsed)
				return result, nil
			}
			if status.State.IsTerminal() {
				log.Errorw("job finished in unexpected state", "state", status.State, "delayReason", status.DelayReason)
				return w.notReached(result, &JobFailedError{JobID: h.ID(), Expected: states, Status: status})
			}
		}

		now := w.clock.Now()
		if !now.Before(deadline) {
			return w.timedOut(ctx, h, result)
		}

		next := bo.NextBackOff()
		if next == backoff.Stop || next <= 0 {
			next = w.interval
		}
		if remaining := deadline.Sub(now); next > remaining {
			next = remaining
		}

		log.Infow("sleeping before next poll",
			"sleep", next,
			"state", result.Status.State,
			"phase", result.Status.Phase,
			"progress", result.Status.PercentComplete,
			"delayReason", result.Status.DelayReason,
		)

		if err := sleep(ctx, w.clock, next); err != nil {
			return result, fmt.Errorf("waiting for job %s: %w", h.ID(), err)
		}
	}
}

func (w *JobWaiter) timedOut(ctx context.Context, h JobHandle, result Result) (Result, error) {
	log := zap.S().Named("job_waiter").With("job", h.ID())
	log.Errorw("giving up, job did not reach expected state in time",
		"timeout", w.timeout,
		"state", result.Status.State,
		"delayReason", result.Status.DelayReason,
	)

	if w.killOnTimeout {
		if err := h.Kill(ctx); err != nil {
			log.Warnw("failed to kill job after timeout", "error", err)
		} else {
			log.Info("job killed after timeout")
		}
	}

	return w.notReached(result, &TimeoutError{JobID: h.ID(), Timeout: w.timeout, Last: result.Status})
}

func (w *JobWaiter) notReached(result Result, err error) (Result, error) {
	if !w.hardCheck {
		return result, nil
	}
	return result, err
}

// WaitForPhase waits for the job to enter phase. A job that already finished is not an error;
// a job finishing while waiting is.
func (w *JobWaiter) WaitForPhase(ctx context.Context, h JobHandle, phase string, attempts int, interval time.Duration) error {
	log := zap.S().Named("job_waiter").With("job", h.ID())

	status, err := h.Status(ctx)
	if err != nil {
		return fmt.Errorf("fetching status of job %s: %w", h.ID(), err)
	}
	if status.Finished() {
		log.Infow("job already finished before waiting for phase", "state", status.State)
		return nil
	}

	for attempt := 1; ; attempt++ {
		if strings.EqualFold(status.Phase, phase) {
			log.Infow("job reached phase", "phase", phase, "attempt", attempt)
			return nil
		}
		if attempt >= attempts {
			return &PhaseError{JobID: h.ID(), Phase: phase, Attempts: attempts, Last: status}
		}

		log.Infow("waiting for job phase", "phase", phase, "current", status.Phase, "attempt", attempt, "attempts", attempts)
		if err := sleep(ctx, w.clock, interval); err != nil {
			return fmt.Errorf("waiting for job %s phase: %w", h.ID(), err)
		}

		status, err = h.Status(ctx)
		if err != nil {
			return fmt.Errorf("fetching status of job %s: %w", h.ID(), err)
		}
		if status.Finished() {
			return &PhaseError{JobID: h.ID(), Phase: phase, Attempts: attempt, Finished: true, Last: status}
		}
	}
}

// WaitForProgress waits until the job progress exceeds percent.
func (w *JobWaiter) WaitForProgress(ctx context.Context, h JobHandle, percent int, timeout time.Duration) (JobStatus, error) {
	log := zap.S().Named("job_waiter").With("job", h.ID())
	start := w.clock.Now()

	status, err := h.Status(ctx)
	if err != nil {
		return status, fmt.Errorf("fetching status of job %s: %w", h.ID(), err)
	}
	if status.Finished() {
		log.Infow("job already finished before waiting for progress", "state", status.State)
		return status, nil
	}

	for status.PercentComplete <= percent {
		if w.clock.Since(start) >= timeout {
			return status, &TimeoutError{JobID: h.ID(), Timeout: timeout, Last: status}
		}
		log.Infow("waiting for job progress", "target", percent, "current", status.PercentComplete)
		if err := sleep(ctx, w.clock, w.interval); err != nil {
			return status, fmt.Errorf("waiting for job %s progress: %w", h.ID(), err)
		}
		if status, err = h.Status(ctx); err != nil {
			return status, fmt.Errorf("fetching status of job %s: %w", h.ID(), err)
		}
	}

	log.Infow("job progress reached", "percent", status.PercentComplete)
	return status, nil
}

func sleep(ctx context.Context, c clock.Clock, d time.Duration) error {
	t := c.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
