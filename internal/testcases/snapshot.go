package testcases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/backupqa/qa-agent/pkg/scheduler"
	"github.com/backupqa/qa-agent/pkg/testcase"
	"github.com/backupqa/qa-agent/pkg/vmware"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

const VMSnapshotID = "vm-snapshot"

// VMSnapshot snapshots every listed VM in parallel, optionally backs up a
// subclient while the snapshots exist, and removes them again.
type VMSnapshot struct {
	vms          []string
	snapshotName string
	subclientID  string
	skipPrivs    bool
	timeout      time.Duration
	sched        *scheduler.Scheduler
}

func NewVMSnapshot() testcase.TestCase { return &VMSnapshot{} }

func (v *VMSnapshot) ID() string               { return VMSnapshotID }
func (v *VMSnapshot) Name() string             { return "VM snapshot cycle" }
func (v *VMSnapshot) RequiredInputs() []string { return []string{"VMNames"} }

func (v *VMSnapshot) Setup(_ context.Context, env *testcase.Env) error {
	if env.VMs == nil {
		return errors.New("vSphere is not configured")
	}
	v.vms = env.Inputs.StringSlice("VMNames")
	if len(v.vms) == 0 {
		return errors.New("no VMs to snapshot")
	}
	v.snapshotName = env.Inputs.String("SnapshotName")
	if v.snapshotName == "" {
		v.snapshotName = "qa-agent-snapshot"
	}
	v.subclientID = env.Inputs.String("SubclientId")
	if v.subclientID != "" {
		if err := requireProduct(env); err != nil {
			return err
		}
	}

	var err error
	if v.skipPrivs, err = env.Inputs.Bool("SkipPrivilegeCheck", false); err != nil {
		return err
	}
	if v.timeout, err = env.Inputs.Minutes("TimeoutMinutes", waiter.DefaultTimeout); err != nil {
		return err
	}

	v.sched = scheduler.NewScheduler(len(v.vms))
	return nil
}

func (v *VMSnapshot) Run(ctx context.Context, env *testcase.Env) error {
	w := waiterFor(env).With(waiter.WithTimeout(v.timeout))
	builder := vmware.NewSnapshotWorkBuilder(env.VMs, w)
	if v.skipPrivs {
		builder.SkipPrivilegeCheck()
	}

	errs := testcase.FanOut(ctx, v.sched, v.vms, func(ctx context.Context, name string) error {
		id, err := env.VMs.FindVM(ctx, name)
		if err != nil {
			return err
		}
		work := builder.Build(id, v.snapshotName, v.backupWhileSnapshotted(env, w))
		_, err = work(ctx)
		return err
	})
	return joinSorted(errs)
}

func (v *VMSnapshot) backupWhileSnapshotted(env *testcase.Env, w *waiter.JobWaiter) func(context.Context) error {
	if v.subclientID == "" {
		return nil
	}
	return func(ctx context.Context) error {
		h, err := env.Product.StartBackup(ctx, v.subclientID, "Full")
		if err != nil {
			return err
		}
		res, err := w.WaitForCompletion(ctx, h)
		return waiter.RequireReached(h.ID(), res, err)
	}
}

func (v *VMSnapshot) TearDown(context.Context, *testcase.Env) error {
	if v.sched != nil {
		v.sched.Close()
		v.sched = nil
	}
	return nil
}

func joinSorted(errs map[string]error) error {
	if len(errs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	joined := make([]error, 0, len(keys))
	for _, k := range keys {
		joined = append(joined, errs[k])
	}
	return fmt.Errorf("%d of the machines failed: %w", len(keys), errors.Join(joined...))
}
