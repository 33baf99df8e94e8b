package models

import (
	"fmt"
	"time"
)

type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
	RunStatusPassed   RunStatus = "passed"
	RunStatusFailed   RunStatus = "failed"
	RunStatusCanceled RunStatus = "canceled"
)

func ParseRunStatus(s string) (RunStatus, error) {
	switch RunStatus(s) {
	case RunStatusPending, RunStatusRunning, RunStatusPassed, RunStatusFailed, RunStatusCanceled:
		return RunStatus(s), nil
	default:
		return "", fmt.Errorf("invalid run status: %s", s)
	}
}

func (s RunStatus) Finished() bool {
	return s == RunStatusPassed || s == RunStatusFailed || s == RunStatusCanceled
}

// Run is one execution of a testcase.
type Run struct {
	ID         string
	TestcaseID string
	Name       string
	Status     RunStatus
	Result     string
	Inputs     map[string]any
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

func (r Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// StoredInputs are the tcinputs kept for a testcase.
type StoredInputs struct {
	TestcaseID string
	Inputs     map[string]any
	UpdatedAt  time.Time
}
