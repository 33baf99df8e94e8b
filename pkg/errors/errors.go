package errors

import (
	"errors"
	"fmt"
)

type ResourceNotFoundError struct {
	resource string
	id       string
}

func NewResourceNotFoundError(resource, id string) *ResourceNotFoundError {
	return &ResourceNotFoundError{resource: resource, id: id}
}

func (e *ResourceNotFoundError) Error() string {
	if e.id == "" {
		return fmt.Sprintf("%s not found", e.resource)
	}
	return fmt.Sprintf("%s %q not found", e.resource, e.id)
}

func NewRunNotFoundError(id string) *ResourceNotFoundError {
	return NewResourceNotFoundError("run", id)
}

func NewTestcaseNotFoundError(id string) *ResourceNotFoundError {
	return NewResourceNotFoundError("testcase", id)
}

func NewInputsNotFoundError(testcaseID string) *ResourceNotFoundError {
	return NewResourceNotFoundError("inputs for testcase", testcaseID)
}

func NewJobNotFoundError(jobID string) *ResourceNotFoundError {
	return NewResourceNotFoundError("job", jobID)
}

func NewRegistryValueNotFoundError(key, value string) *ResourceNotFoundError {
	return NewResourceNotFoundError("registry value", key+`\`+value)
}

func IsResourceNotFoundError(err error) bool {
	var e *ResourceNotFoundError
	return errors.As(err, &e)
}

type RunInProgressError struct {
	testcaseID string
}

func NewRunInProgressError(testcaseID string) *RunInProgressError {
	return &RunInProgressError{testcaseID: testcaseID}
}

func (e *RunInProgressError) Error() string {
	return fmt.Sprintf("a run of testcase %q is already in progress", e.testcaseID)
}

func IsRunInProgressError(err error) bool {
	var e *RunInProgressError
	return errors.As(err, &e)
}

// InvalidInputsError lists the tcinputs keys that were required but missing or malformed.
type InvalidInputsError struct {
	testcaseID string
	keys       []string
}

func NewInvalidInputsError(testcaseID string, keys ...string) *InvalidInputsError {
	return &InvalidInputsError{testcaseID: testcaseID, keys: keys}
}

func (e *InvalidInputsError) Error() string {
	return fmt.Sprintf("testcase %s: missing or invalid inputs %v", e.testcaseID, e.keys)
}

func (e *InvalidInputsError) Keys() []string {
	return e.keys
}

func IsInvalidInputsError(err error) bool {
	var e *InvalidInputsError
	return errors.As(err, &e)
}

type AgentUnauthorizedError struct{}

func NewAgentUnauthorized() *AgentUnauthorizedError {
	return &AgentUnauthorizedError{}
}

func (e *AgentUnauthorizedError) Error() string {
	return "agent is not authorized against the product api"
}

func IsAgentUnauthorizedError(err error) bool {
	var e *AgentUnauthorizedError
	return errors.As(err, &e)
}
