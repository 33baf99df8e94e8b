package vmware

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/pkg/scheduler"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

// VMOperator is the subset of VMManager the snapshot workflow drives.
type VMOperator interface {
	ValidatePrivileges(ctx context.Context, moid string, required []string) error
	CreateSnapshot(ctx context.Context, req CreateSnapshotRequest) (waiter.JobHandle, error)
	RemoveSnapshot(ctx context.Context, req RemoveSnapshotRequest) (waiter.JobHandle, error)
}

// SnapshotWorkBuilder builds work that keeps a VM snapshot while an inner step runs.
type SnapshotWorkBuilder struct {
	operator       VMOperator
	waiter         *waiter.JobWaiter
	skipPrivileges bool
}

func NewSnapshotWorkBuilder(operator VMOperator, w *waiter.JobWaiter) *SnapshotWorkBuilder {
	return &SnapshotWorkBuilder{operator: operator, waiter: w}
}

// SkipPrivilegeCheck is for users that may not read their own privileges.
func (b *SnapshotWorkBuilder) SkipPrivilegeCheck() *SnapshotWorkBuilder {
	b.skipPrivileges = true
	return b
}

// Build validates privileges, snapshots vmID, runs inner and removes the snapshot.
// The snapshot is removed even when inner fails.
func (b *SnapshotWorkBuilder) Build(vmID, snapshotName string, inner func(ctx context.Context) error) scheduler.Work[any] {
	return func(ctx context.Context) (any, error) {
		log := zap.S().Named("snapshot_work").With("vmId", vmID, "snapshot", snapshotName)

		if !b.skipPrivileges {
			log.Info("validate privileges on VM")
			if err := b.operator.ValidatePrivileges(ctx, vmID, SnapshotPrivileges); err != nil {
				log.Errorw("validation failed", "error", err)
				return nil, err
			}
		}

		log.Info("creating VM snapshot")
		h, err := b.operator.CreateSnapshot(ctx, CreateSnapshotRequest{VmId: vmID, SnapshotName: snapshotName})
		if err != nil {
			return nil, err
		}
		res, err := b.waiter.WaitForCompletion(ctx, h)
		if err := waiter.RequireReached(h.ID(), res, err); err != nil {
			log.Errorw("VM snapshot task failed", "error", err)
			return nil, fmt.Errorf("snapshot %s of vm %s: %w", snapshotName, vmID, err)
		}
		log.Info("VM snapshot created")

		var innerErr error
		if inner != nil {
			innerErr = inner(ctx)
		}

		removeErr := b.remove(context.WithoutCancel(ctx), vmID, snapshotName)
		if removeErr == nil {
			log.Info("VM snapshot removed")
		}
		return nil, errors.Join(innerErr, removeErr)
	}
}

func (b *SnapshotWorkBuilder) remove(ctx context.Context, vmID, snapshotName string) error {
	h, err := b.operator.RemoveSnapshot(ctx, RemoveSnapshotRequest{VmId: vmID, SnapshotName: snapshotName, Consolidate: true})
	if err != nil {
		return err
	}
	res, err := b.waiter.WaitForCompletion(ctx, h)
	if err := waiter.RequireReached(h.ID(), res, err); err != nil {
		return fmt.Errorf("removing snapshot %s of vm %s: %w", snapshotName, vmID, err)
	}
	return nil
}
