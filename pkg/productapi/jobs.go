package productapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	serviceErrs "github.com/backupqa/qa-agent/pkg/errors"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

// JobSummary is the job representation returned by the product.
type JobSummary struct {
	JobID           int64  `json:"jobId"`
	Status          string `json:"status"`
	Phase           string `json:"currentPhaseName"`
	PendingReason   string `json:"pendingReason"`
	PercentComplete int    `json:"percentComplete"`
	ClientName      string `json:"clientName"`
	JobType         string `json:"jobType"`
}

type jobEnvelope struct {
	JobSummary JobSummary `json:"jobSummary"`
}

type jobsResponse struct {
	Jobs []jobEnvelope `json:"jobs"`
}

type startJobResponse struct {
	JobIDs []string `json:"jobIds"`
}

type restoreRequest struct {
	Paths       []string `json:"paths"`
	Destination string   `json:"destination,omitempty"`
	InPlace     bool     `json:"inPlace"`
}

func (s JobSummary) toStatus() waiter.JobStatus {
	return waiter.JobStatus{
		ID:              strconv.FormatInt(s.JobID, 10),
		State:           waiter.ParseJobState(s.Status),
		Phase:           s.Phase,
		DelayReason:     s.PendingReason,
		PercentComplete: s.PercentComplete,
	}
}

// JobHandle is a product job seen through the waiter.
type JobHandle struct {
	client *Client
	id     string
}

var _ waiter.JobHandle = (*JobHandle)(nil)

// Job returns a handle for an existing job.
func (c *Client) Job(ctx context.Context, id string) (*JobHandle, error) {
	h := &JobHandle{client: c, id: id}
	if _, err := h.Status(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *JobHandle) ID() string { return h.id }

// Status fetches the job summary. Missing jobs and auth failures stop any wait.
func (h *JobHandle) Status(ctx context.Context) (waiter.JobStatus, error) {
	summary, err := h.client.jobSummary(ctx, h.id)
	if err != nil {
		if serviceErrs.IsResourceNotFoundError(err) {
			return waiter.JobStatus{}, waiter.Permanent(serviceErrs.NewJobNotFoundError(h.id))
		}
		if serviceErrs.IsAgentUnauthorizedError(err) {
			return waiter.JobStatus{}, waiter.Permanent(err)
		}
		return waiter.JobStatus{}, err
	}
	return summary.toStatus(), nil
}

func (h *JobHandle) Kill(ctx context.Context) error   { return h.client.jobAction(ctx, h.id, "kill") }
func (h *JobHandle) Pause(ctx context.Context) error  { return h.client.jobAction(ctx, h.id, "pause") }
func (h *JobHandle) Resume(ctx context.Context) error { return h.client.jobAction(ctx, h.id, "resume") }

func (c *Client) jobSummary(ctx context.Context, id string) (JobSummary, error) {
	p, err := pathParam("jobId", id)
	if err != nil {
		return JobSummary{}, err
	}

	var resp jobEnvelope
	if err := c.do(ctx, http.MethodGet, "/Job/"+p, nil, nil, &resp); err != nil {
		return JobSummary{}, err
	}
	return resp.JobSummary, nil
}

func (c *Client) jobAction(ctx context.Context, id, action string) error {
	p, err := pathParam("jobId", id)
	if err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, "/Job/"+p+"/action/"+action, nil, nil, nil); err != nil {
		if serviceErrs.IsResourceNotFoundError(err) {
			return serviceErrs.NewJobNotFoundError(id)
		}
		return fmt.Errorf("%s job %s: %w", action, id, err)
	}
	zap.S().Named("product_client").Infow("job action sent", "job", id, "action", action)
	return nil
}

// ActiveJobs lists the ids of backup jobs still active on a client.
func (c *Client) ActiveJobs(ctx context.Context, clientName string) ([]string, error) {
	q := url.Values{}
	q.Set("clientName", clientName)
	q.Set("jobFilter", "Backup")
	q.Set("jobCategory", "Active")

	var resp jobsResponse
	if err := c.do(ctx, http.MethodGet, "/Job", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("listing active jobs of %s: %w", clientName, err)
	}

	ids := make([]string, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		if waiter.ParseJobState(j.JobSummary.Status).IsTerminal() {
			continue
		}
		ids = append(ids, strconv.FormatInt(j.JobSummary.JobID, 10))
	}
	return ids, nil
}

// KillActiveJobs kills every active backup job of a client and returns the ids it killed.
// Jobs the product refuses to control are skipped.
func (c *Client) KillActiveJobs(ctx context.Context, clientName string) ([]string, error) {
	log := zap.S().Named("product_client").With("client", clientName)

	ids, err := c.ActiveJobs(ctx, clientName)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		log.Info("no active jobs to kill")
		return nil, nil
	}

	killed := make([]string, 0, len(ids))
	for _, id := range ids {
		err := c.jobAction(ctx, id, "kill")
		switch {
		case err == nil:
			killed = append(killed, id)
		case isUncontrollable(err), serviceErrs.IsResourceNotFoundError(err):
			log.Warnw("job cannot be killed, skipping", "job", id, "error", err)
		default:
			return killed, err
		}
	}
	log.Infow("killed active jobs", "jobs", killed)
	return killed, nil
}

func isUncontrollable(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "cannot be suspended/killed/resumed")
}

// StartBackup launches a backup of a subclient and returns its handle.
func (c *Client) StartBackup(ctx context.Context, subclientID, level string) (*JobHandle, error) {
	p, err := pathParam("subclientId", subclientID)
	if err != nil {
		return nil, err
	}
	if level == "" {
		level = "Full"
	}
	q := url.Values{}
	q.Set("backupLevel", level)

	var resp startJobResponse
	if err := c.do(ctx, http.MethodPost, "/Subclient/"+p+"/action/backup", q, nil, &resp); err != nil {
		return nil, fmt.Errorf("starting %s backup of subclient %s: %w", level, subclientID, err)
	}
	return c.startedJob(resp, "backup", subclientID)
}

// StartRestore restores paths of a subclient. An empty destination restores in place.
func (c *Client) StartRestore(ctx context.Context, subclientID string, paths []string, destination string) (*JobHandle, error) {
	p, err := pathParam("subclientId", subclientID)
	if err != nil {
		return nil, err
	}

	body := restoreRequest{Paths: paths, Destination: destination, InPlace: destination == ""}
	var resp startJobResponse
	if err := c.do(ctx, http.MethodPost, "/Subclient/"+p+"/action/restore", nil, body, &resp); err != nil {
		return nil, fmt.Errorf("starting restore of subclient %s: %w", subclientID, err)
	}
	return c.startedJob(resp, "restore", subclientID)
}

func (c *Client) startedJob(resp startJobResponse, kind, subclientID string) (*JobHandle, error) {
	if len(resp.JobIDs) == 0 {
		return nil, fmt.Errorf("%s of subclient %s did not return a job id", kind, subclientID)
	}
	zap.S().Named("product_client").Infow("job started", "kind", kind, "subclient", subclientID, "job", resp.JobIDs[0])
	return &JobHandle{client: c, id: resp.JobIDs[0]}, nil
}
