package vmware

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/property"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/mo"
	"github.com/vmware/govmomi/vim25/types"

	"github.com/backupqa/qa-agent/pkg/waiter"
)

// TaskHandle lets the waiter poll a vSphere task.
type TaskHandle struct {
	client *vim25.Client
	task   *object.Task
}

var _ waiter.JobHandle = (*TaskHandle)(nil)

func NewTaskHandle(c *vim25.Client, task *object.Task) *TaskHandle {
	return &TaskHandle{client: c, task: task}
}

func (h *TaskHandle) ID() string {
	return h.task.Reference().Value
}

func (h *TaskHandle) Status(ctx context.Context) (waiter.JobStatus, error) {
	var t mo.Task
	if err := property.DefaultCollector(h.client).RetrieveOne(ctx, h.task.Reference(), []string{"info"}, &t); err != nil {
		return waiter.JobStatus{}, fmt.Errorf("failed to retrieve task %s: %w", h.ID(), err)
	}
	return taskStatus(h.ID(), t.Info), nil
}

func taskStatus(id string, info types.TaskInfo) waiter.JobStatus {
	status := waiter.JobStatus{
		ID:              id,
		Phase:           info.DescriptionId,
		PercentComplete: int(info.Progress),
	}

	switch info.State {
	case types.TaskInfoStateQueued:
		status.State = waiter.StateQueued
	case types.TaskInfoStateRunning:
		status.State = waiter.StateRunning
	case types.TaskInfoStateSuccess:
		status.State = waiter.StateCompleted
		status.PercentComplete = 100
	case types.TaskInfoStateError:
		status.State = waiter.StateFailed
		if info.Error != nil {
			status.DelayReason = info.Error.LocalizedMessage
		}
	default:
		status.State = waiter.ParseJobState(string(info.State))
	}
	return status
}

// Kill cancels the task.
func (h *TaskHandle) Kill(ctx context.Context) error {
	return h.task.Cancel(ctx)
}

func (h *TaskHandle) Pause(context.Context) error  { return waiter.ErrUnsupported }
func (h *TaskHandle) Resume(context.Context) error { return waiter.ErrUnsupported }
