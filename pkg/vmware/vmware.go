package vmware

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/vim25"

	"github.com/backupqa/qa-agent/pkg/waiter"
)

// SnapshotPrivileges are needed to snapshot a VM before backing it up.
var SnapshotPrivileges = []string{
	"VirtualMachine.State.CreateSnapshot",
	"VirtualMachine.State.RemoveSnapshot",
}

type CreateSnapshotRequest struct {
	VmId         string
	SnapshotName string
	Description  string
	Memory       bool
	Quiesce      bool
}

type RemoveSnapshotRequest struct {
	VmId         string
	SnapshotName string
	Consolidate  bool
}

// VMManager runs VM operations whose progress is tracked as vSphere tasks.
type VMManager struct {
	client   *vim25.Client
	username string
}

func NewVMManager(c *vim25.Client, username string) *VMManager {
	return &VMManager{client: c, username: username}
}

// FindVM resolves a VM inventory path or name to its managed object id.
func (m *VMManager) FindVM(ctx context.Context, name string) (string, error) {
	finder := find.NewFinder(m.client, true)
	dc, err := finder.DefaultDatacenter(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find datacenter: %w", err)
	}
	finder.SetDatacenter(dc)

	vm, err := finder.VirtualMachine(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to find vm %s: %w", name, err)
	}
	return vm.Reference().Value, nil
}

func (m *VMManager) CreateSnapshot(ctx context.Context, req CreateSnapshotRequest) (waiter.JobHandle, error) {
	vm := m.vmFromMoid(req.VmId)
	task, err := vm.CreateSnapshot(ctx, req.SnapshotName, req.Description, req.Memory, req.Quiesce)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot %s of vm %s: %w", req.SnapshotName, req.VmId, err)
	}
	return NewTaskHandle(m.client, task), nil
}

func (m *VMManager) RemoveSnapshot(ctx context.Context, req RemoveSnapshotRequest) (waiter.JobHandle, error) {
	vm := m.vmFromMoid(req.VmId)
	consolidate := req.Consolidate
	task, err := vm.RemoveSnapshot(ctx, req.SnapshotName, false, &consolidate)
	if err != nil {
		return nil, fmt.Errorf("failed to remove snapshot %s of vm %s: %w", req.SnapshotName, req.VmId, err)
	}
	return NewTaskHandle(m.client, task), nil
}
