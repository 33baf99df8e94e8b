package productapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	serviceErrs "github.com/backupqa/qa-agent/pkg/errors"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

const (
	RunStatusKeyPrefix = `LaptopCache\`
	RunStatusValue     = "RunStatus"
)

// RunStatus values written by the client machine.
const (
	RunStatusIdle   = 0
	RunStatusFailed = 6
)

type registryResponse struct {
	Value string `json:"value"`
}

// RegistryValue reads a registry value of a client machine.
func (c *Client) RegistryValue(ctx context.Context, clientName, key, value string) (string, error) {
	p, err := pathParam("clientName", clientName)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("key", key)
	q.Set("value", value)

	var resp registryResponse
	if err := c.do(ctx, http.MethodGet, "/Client/"+p+"/Registry", q, nil, &resp); err != nil {
		if serviceErrs.IsResourceNotFoundError(err) {
			return "", serviceErrs.NewRegistryValueNotFoundError(key, value)
		}
		return "", fmt.Errorf("reading registry %s\\%s on %s: %w", key, value, clientName, err)
	}
	return resp.Value, nil
}

// RegistryReader is the part of Client the RunStatus handle needs.
type RegistryReader interface {
	RegistryValue(ctx context.Context, clientName, key, value string) (string, error)
}

// RunStatusHandle exposes the RunStatus registry value of a laptop client as a job.
// 0 is idle, 1 to 5 are backup stages and 6 means the last backup failed.
type RunStatusHandle struct {
	reader      RegistryReader
	clientName  string
	subclientID string
}

var _ waiter.JobHandle = (*RunStatusHandle)(nil)

func NewRunStatusHandle(r RegistryReader, clientName, subclientID string) *RunStatusHandle {
	return &RunStatusHandle{reader: r, clientName: clientName, subclientID: subclientID}
}

func (h *RunStatusHandle) ID() string {
	return h.clientName + "/" + h.subclientID
}

func (h *RunStatusHandle) Status(ctx context.Context) (waiter.JobStatus, error) {
	raw, err := h.reader.RegistryValue(ctx, h.clientName, RunStatusKeyPrefix+h.subclientID, RunStatusValue)
	if err != nil {
		if serviceErrs.IsResourceNotFoundError(err) {
			return waiter.JobStatus{ID: h.ID(), State: waiter.StateRunning, Phase: "unknown", DelayReason: "RunStatus not written yet"}, nil
		}
		if serviceErrs.IsAgentUnauthorizedError(err) {
			return waiter.JobStatus{}, waiter.Permanent(err)
		}
		return waiter.JobStatus{}, err
	}

	code, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return waiter.JobStatus{}, waiter.Permanent(fmt.Errorf("invalid RunStatus %q on %s", raw, h.clientName))
	}
	return runStatusToJob(h.ID(), h.clientName, code), nil
}

func runStatusToJob(id, clientName string, code int) waiter.JobStatus {
	status := waiter.JobStatus{ID: id, Phase: "RunStatus " + strconv.Itoa(code)}
	switch {
	case code == RunStatusIdle:
		status.State = waiter.StateCompleted
		status.PercentComplete = 100
	case code == RunStatusFailed:
		status.State = waiter.StateFailed
		status.DelayReason = fmt.Sprintf("last backup job failed on client %s", clientName)
	case code > RunStatusIdle && code < RunStatusFailed:
		status.State = waiter.StateRunning
		status.PercentComplete = code * 100 / RunStatusFailed
	default:
		status.State = waiter.StateRunning
		status.DelayReason = fmt.Sprintf("unknown RunStatus %d", code)
	}
	return status
}

func (h *RunStatusHandle) Kill(context.Context) error   { return waiter.ErrUnsupported }
func (h *RunStatusHandle) Pause(context.Context) error  { return waiter.ErrUnsupported }
func (h *RunStatusHandle) Resume(context.Context) error { return waiter.ErrUnsupported }
