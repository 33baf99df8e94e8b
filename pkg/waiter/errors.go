package waiter

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeoutError is returned when the job did not reach an expected state in time.
type TimeoutError struct {
	JobID   string
	Timeout time.Duration
	Last    JobStatus
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for job %s: last state [%s], phase [%s], delay reason [%s]",
		e.Timeout, e.JobID, e.Last.State, e.Last.Phase, e.Last.DelayReason)
}

// JobFailedError is returned when the job finished in a state that was not expected.
type JobFailedError struct {
	JobID    string
	Expected []JobState
	Status   JobStatus
}

func (e *JobFailedError) Error() string {
	expected := make([]string, 0, len(e.Expected))
	for _, s := range e.Expected {
		expected = append(expected, string(s))
	}
	if len(expected) == 0 {
		return fmt.Sprintf("job %s finished in state [%s]: %s", e.JobID, e.Status.State, e.Status.DelayReason)
	}
	return fmt.Sprintf("job %s finished in state [%s] while waiting for [%s]: %s",
		e.JobID, e.Status.State, strings.Join(expected, ", "), e.Status.DelayReason)
}

// PhaseError is returned by WaitForPhase.
type PhaseError struct {
	JobID    string
	Phase    string
	Attempts int
	Finished bool
	Last     JobStatus
}

func (e *PhaseError) Error() string {
	if e.Finished {
		return fmt.Sprintf("job %s finished in state [%s] while waiting for phase [%s]", e.JobID, e.Last.State, e.Phase)
	}
	return fmt.Sprintf("attempts exhausted (%d) waiting for job %s to reach phase [%s], current phase [%s]",
		e.Attempts, e.JobID, e.Phase, e.Last.Phase)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a status error as non retryable so the poll loop stops on it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func IsTimeout(err error) bool {
	var t *TimeoutError
	return errors.As(err, &t)
}

func IsJobFailed(err error) bool {
	var f *JobFailedError
	return errors.As(err, &f)
}

// RequireReached returns err, or an error describing the miss when a soft-check
// wait returned without reaching its state. Callers that cannot go on without the
// state use it so a soft waiter never lets a failed job through.
func RequireReached(jobID string, res Result, err error) error {
	if err != nil || res.Reached {
		return err
	}
	if res.Status.State.IsTerminal() {
		return &JobFailedError{JobID: jobID, Status: res.Status}
	}
	return &TimeoutError{JobID: jobID, Timeout: res.Elapsed, Last: res.Status}
}
