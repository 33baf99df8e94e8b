package waiter

import (
	"context"
	"errors"
	"strings"
)

// JobState is the lowercased state string reported by the product for a job.
type JobState string

const (
	StateQueued     JobState = "queued"
	StatePending    JobState = "pending"
	StateWaiting    JobState = "waiting"
	StateRunning    JobState = "running"
	StateSuspended  JobState = "suspended"
	StateCompleted  JobState = "completed"
	StateFailed     JobState = "failed"
	StateKilled     JobState = "killed"
	StateFailedInit JobState = "failed to start"
	// StateCompletedWithErrors is terminal and counted as a failure.
	StateCompletedWithErrors JobState = "completed w/ one or more errors"
)

var failureStates = []JobState{
	StateFailed,
	StateKilled,
	StateFailedInit,
	StateCompletedWithErrors,
}

// ParseJobState normalizes a state string as returned by the product.
func ParseJobState(s string) JobState {
	return JobState(strings.ToLower(strings.TrimSpace(s)))
}

func (s JobState) IsSuccess() bool {
	return s == StateCompleted
}

func (s JobState) IsFailure() bool {
	for _, f := range failureStates {
		if s == f {
			return true
		}
	}
	return false
}

func (s JobState) IsTerminal() bool {
	return s.IsSuccess() || s.IsFailure()
}

func (s JobState) String() string {
	return string(s)
}

// JobStatus is one observation of a remote job.
type JobStatus struct {
	ID              string
	State           JobState
	Phase           string
	DelayReason     string
	PercentComplete int
}

func (s JobStatus) Finished() bool {
	return s.State.IsTerminal()
}

// ErrUnsupported is returned by handles that cannot perform a control action.
var ErrUnsupported = errors.New("operation not supported by job handle")

// JobHandle is a client side proxy of a server side asynchronous operation.
type JobHandle interface {
	ID() string
	Status(ctx context.Context) (JobStatus, error)
	Kill(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}
