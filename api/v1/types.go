// Package v1 holds the types and routes of the agent HTTP API.
package v1

import (
	"time"
)

// Defines values for RunStatus.
const (
	RunStatusCanceled RunStatus = "canceled"
	RunStatusFailed   RunStatus = "failed"
	RunStatusPassed   RunStatus = "passed"
	RunStatusPending  RunStatus = "pending"
	RunStatusRunning  RunStatus = "running"
)

// Defines values for WaitOutcome.
const (
	WaitOutcomeCanceled  WaitOutcome = "canceled"
	WaitOutcomeFailed    WaitOutcome = "failed"
	WaitOutcomeSucceeded WaitOutcome = "succeeded"
	WaitOutcomeTimedOut  WaitOutcome = "timed_out"
)

// RunStatus defines model for Run.Status.
type RunStatus string

// WaitOutcome defines model for Wait.Outcome.
type WaitOutcome string

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error string `json:"error"`
}

// TestcaseInfo defines model for TestcaseInfo.
type TestcaseInfo struct {
	Id             string   `json:"id"`
	Name           string   `json:"name"`
	RequiredInputs []string `json:"requiredInputs"`
}

// InputsDocument defines model for InputsDocument.
type InputsDocument struct {
	TestcaseId string                 `json:"testcaseId"`
	Inputs     map[string]interface{} `json:"inputs"`
	UpdatedAt  *time.Time             `json:"updatedAt,omitempty"`
}

// StartRunRequest defines model for StartRunRequest.
type StartRunRequest struct {
	TestcaseId string                  `json:"testcaseId"`
	Inputs     *map[string]interface{} `json:"inputs,omitempty"`
}

// Run defines model for Run.
type Run struct {
	Id              string                 `json:"id"`
	TestcaseId      string                 `json:"testcaseId"`
	Name            string                 `json:"name"`
	Status          RunStatus              `json:"status"`
	Result          *string                `json:"result,omitempty"`
	Inputs          map[string]interface{} `json:"inputs"`
	CreatedAt       time.Time              `json:"createdAt"`
	StartedAt       *time.Time             `json:"startedAt,omitempty"`
	FinishedAt      *time.Time             `json:"finishedAt,omitempty"`
	DurationSeconds *float64               `json:"durationSeconds,omitempty"`
}

// RunListResponse defines model for RunListResponse.
type RunListResponse struct {
	Page      int   `json:"page"`
	PageCount int   `json:"pageCount"`
	Total     int   `json:"total"`
	Runs      []Run `json:"runs"`
}

// Wait defines model for Wait.
type Wait struct {
	Id             string      `json:"id"`
	RunId          *string     `json:"runId,omitempty"`
	JobId          string      `json:"jobId"`
	Kind           string      `json:"kind"`
	FinalState     string      `json:"finalState"`
	Phase          *string     `json:"phase,omitempty"`
	DelayReason    *string     `json:"delayReason,omitempty"`
	Polls          int         `json:"polls"`
	ElapsedSeconds float64     `json:"elapsedSeconds"`
	Outcome        WaitOutcome `json:"outcome"`
	Error          *string     `json:"error,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// WaitListResponse defines model for WaitListResponse.
type WaitListResponse struct {
	Page      int    `json:"page"`
	PageCount int    `json:"pageCount"`
	Total     int    `json:"total"`
	Waits     []Wait `json:"waits"`
}

// ListRunsParams defines parameters for ListRuns.
type ListRunsParams struct {
	TestcaseId *[]string `form:"testcaseId,omitempty" json:"testcaseId,omitempty"`
	Status     *[]string `form:"status,omitempty" json:"status,omitempty"`
	Page       *int      `form:"page,omitempty" json:"page,omitempty"`
	PageSize   *int      `form:"pageSize,omitempty" json:"pageSize,omitempty"`
}

// ListWaitsParams defines parameters for ListWaits.
type ListWaitsParams struct {
	RunId    *string   `form:"runId,omitempty" json:"runId,omitempty"`
	JobId    *[]string `form:"jobId,omitempty" json:"jobId,omitempty"`
	Outcome  *[]string `form:"outcome,omitempty" json:"outcome,omitempty"`
	Page     *int      `form:"page,omitempty" json:"page,omitempty"`
	PageSize *int      `form:"pageSize,omitempty" json:"pageSize,omitempty"`
}

// StartRunJSONRequestBody defines body for StartRun for application/json ContentType.
type StartRunJSONRequestBody = StartRunRequest

// PutTestcaseInputsJSONRequestBody defines body for PutTestcaseInputs for application/json ContentType.
type PutTestcaseInputsJSONRequestBody = map[string]interface{}
