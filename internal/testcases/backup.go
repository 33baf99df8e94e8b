package testcases

import (
	"context"
	"errors"
	"time"

	"github.com/backupqa/qa-agent/pkg/testcase"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

const (
	BackupID  = "backup"
	RestoreID = "restore"
)

// Backup starts a backup of a subclient and waits for it to complete.
type Backup struct {
	subclientID string
	level       string
	timeout     time.Duration
	job         waiter.JobHandle
	finished    bool
}

func NewBackup() testcase.TestCase { return &Backup{} }

func (b *Backup) ID() string               { return BackupID }
func (b *Backup) Name() string             { return "Backup job completes" }
func (b *Backup) RequiredInputs() []string { return []string{"SubclientId"} }

func (b *Backup) Setup(_ context.Context, env *testcase.Env) error {
	if err := requireProduct(env); err != nil {
		return err
	}
	b.subclientID = env.Inputs.String("SubclientId")
	b.level = env.Inputs.String("BackupLevel")
	if b.level == "" {
		b.level = "Full"
	}

	timeout, err := env.Inputs.Minutes("TimeoutMinutes", waiter.DefaultTimeout)
	if err != nil {
		return err
	}
	b.timeout = timeout
	return nil
}

func (b *Backup) Run(ctx context.Context, env *testcase.Env) error {
	h, err := env.Product.StartBackup(ctx, b.subclientID, b.level)
	if err != nil {
		return err
	}
	b.job = h
	env.Log.Infow("backup job started", "job", h.ID(), "level", b.level)

	res, err := waiterFor(env).With(waiter.WithTimeout(b.timeout)).WaitForCompletion(ctx, h)
	err = waiter.RequireReached(h.ID(), res, err)
	b.finished = err == nil || waiter.IsJobFailed(err)
	return err
}

// TearDown kills a backup left running by a timed out or canceled wait.
func (b *Backup) TearDown(ctx context.Context, env *testcase.Env) error {
	return killUnfinished(ctx, env, b.job, b.finished)
}

// Restore restores paths of a subclient in place or to a destination and waits for it.
type Restore struct {
	subclientID string
	paths       []string
	destination string
	timeout     time.Duration
	job         waiter.JobHandle
	finished    bool
}

func NewRestore() testcase.TestCase { return &Restore{} }

func (r *Restore) ID() string               { return RestoreID }
func (r *Restore) Name() string             { return "Restore job completes" }
func (r *Restore) RequiredInputs() []string { return []string{"SubclientId", "Paths"} }

func (r *Restore) Setup(_ context.Context, env *testcase.Env) error {
	if err := requireProduct(env); err != nil {
		return err
	}
	r.subclientID = env.Inputs.String("SubclientId")
	r.paths = env.Inputs.StringSlice("Paths")
	if len(r.paths) == 0 {
		return errors.New("no paths to restore")
	}
	r.destination = env.Inputs.String("Destination")

	timeout, err := env.Inputs.Minutes("TimeoutMinutes", waiter.DefaultTimeout)
	if err != nil {
		return err
	}
	r.timeout = timeout
	return nil
}

func (r *Restore) Run(ctx context.Context, env *testcase.Env) error {
	h, err := env.Product.StartRestore(ctx, r.subclientID, r.paths, r.destination)
	if err != nil {
		return err
	}
	r.job = h
	env.Log.Infow("restore job started", "job", h.ID(), "inPlace", r.destination == "")

	res, err := waiterFor(env).With(waiter.WithTimeout(r.timeout)).WaitForCompletion(ctx, h)
	err = waiter.RequireReached(h.ID(), res, err)
	r.finished = err == nil || waiter.IsJobFailed(err)
	return err
}

func (r *Restore) TearDown(ctx context.Context, env *testcase.Env) error {
	return killUnfinished(ctx, env, r.job, r.finished)
}
