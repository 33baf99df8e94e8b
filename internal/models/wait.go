package models

import (
	"fmt"
	"time"
)

type WaitOutcome string

const (
	WaitOutcomeSucceeded WaitOutcome = "succeeded"
	WaitOutcomeFailed    WaitOutcome = "failed"
	WaitOutcomeTimedOut  WaitOutcome = "timed_out"
	WaitOutcomeCanceled  WaitOutcome = "canceled"
)

func ParseWaitOutcome(s string) (WaitOutcome, error) {
	switch WaitOutcome(s) {
	case WaitOutcomeSucceeded, WaitOutcomeFailed, WaitOutcomeTimedOut, WaitOutcomeCanceled:
		return WaitOutcome(s), nil
	default:
		return "", fmt.Errorf("invalid wait outcome: %s", s)
	}
}

type WaitKind string

const (
	WaitKindJob       WaitKind = "job"
	WaitKindRunStatus WaitKind = "runstatus"
	WaitKindTask      WaitKind = "task"
)

// WaitRecord is the history entry of one wait on a job handle.
type WaitRecord struct {
	ID          string
	RunID       string
	JobID       string
	Kind        WaitKind
	FinalState  string
	Phase       string
	DelayReason string
	Polls       int
	Elapsed     time.Duration
	Outcome     WaitOutcome
	Error       string
	CreatedAt   time.Time
}
