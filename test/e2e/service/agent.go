package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	v1 "github.com/backupqa/qa-agent/api/v1"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

// AgentSvc is an HTTP client for the agent API.
type AgentSvc struct {
	baseURL    string
	httpClient *http.Client
}

func NewAgentSvc(baseURL string) *AgentSvc {
	return &AgentSvc{
		baseURL:    baseURL + "/api/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// StatusError is returned for non-2xx answers.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("agent returned %d: %s", e.Code, e.Body)
}

func (s *AgentSvc) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (s *AgentSvc) Testcases() ([]v1.TestcaseInfo, error) {
	var infos []v1.TestcaseInfo
	return infos, s.do(http.MethodGet, "/testcases", nil, &infos)
}

func (s *AgentSvc) PutInputs(testcaseID string, inputs map[string]any) error {
	return s.do(http.MethodPut, "/testcases/"+url.PathEscape(testcaseID)+"/inputs", inputs, nil)
}

func (s *AgentSvc) StartRun(testcaseID string, inputs map[string]any) (*v1.Run, error) {
	req := v1.StartRunRequest{TestcaseId: testcaseID}
	if inputs != nil {
		req.Inputs = &inputs
	}
	var run v1.Run
	if err := s.do(http.MethodPost, "/runs", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *AgentSvc) GetRun(id string) (*v1.Run, error) {
	var run v1.Run
	if err := s.do(http.MethodGet, "/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *AgentSvc) CancelRun(id string) (*v1.Run, error) {
	var run v1.Run
	if err := s.do(http.MethodDelete, "/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *AgentSvc) ListWaits(runID string) (*v1.WaitListResponse, error) {
	var resp v1.WaitListResponse
	if err := s.do(http.MethodGet, "/waits?runId="+url.QueryEscape(runID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitForRun polls the run until it reaches a final status or timeout passes.
func (s *AgentSvc) WaitForRun(ctx context.Context, id string, timeout time.Duration) (*v1.Run, error) {
	var last *v1.Run
	done, err := waiter.Until(ctx, func(context.Context) (bool, error) {
		run, err := s.GetRun(id)
		if err != nil {
			return false, err
		}
		last = run
		switch run.Status {
		case v1.RunStatusPassed, v1.RunStatusFailed, v1.RunStatusCanceled:
			return true, nil
		}
		return false, nil
	}, waiter.ConditionOptions{Name: "run " + id, Interval: 50 * time.Millisecond, Duration: timeout, Silent: true})
	if err != nil {
		return last, err
	}
	if !done {
		return last, fmt.Errorf("run %s did not finish within %s", id, timeout)
	}
	return last, nil
}
