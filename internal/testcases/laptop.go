package testcases

import (
	"context"
	"fmt"
	"time"

	"github.com/backupqa/qa-agent/pkg/productapi"
	"github.com/backupqa/qa-agent/pkg/testcase"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

const (
	KillActiveJobsID = "kill-active-jobs"
	LaptopIdleID     = "laptop-idle"
)

// KillActiveJobs kills the active backups of a client and waits until none is left.
type KillActiveJobs struct {
	clientName string
	cond       waiter.ConditionOptions
}

func NewKillActiveJobs() testcase.TestCase { return &KillActiveJobs{} }

func (k *KillActiveJobs) ID() string               { return KillActiveJobsID }
func (k *KillActiveJobs) Name() string             { return "Kill active jobs of a client" }
func (k *KillActiveJobs) RequiredInputs() []string { return []string{"ClientName"} }

func (k *KillActiveJobs) Setup(_ context.Context, env *testcase.Env) error {
	if err := requireProduct(env); err != nil {
		return err
	}
	k.clientName = env.Inputs.String("ClientName")

	interval, err := env.Inputs.Int("IntervalSeconds", 2)
	if err != nil {
		return err
	}
	attempts, err := env.Inputs.Int("Attempts", 40)
	if err != nil {
		return err
	}
	k.cond = waiter.ConditionOptions{
		Name:     "no active jobs on " + k.clientName,
		Interval: time.Duration(interval) * time.Second,
		Attempts: attempts,
	}
	return nil
}

func (k *KillActiveJobs) Run(ctx context.Context, env *testcase.Env) error {
	killed, err := env.Product.KillActiveJobs(ctx, k.clientName)
	if err != nil {
		return err
	}
	env.Log.Infow("kill requested", "jobs", killed)

	var left []string
	ok, err := waiter.Until(ctx, func(ctx context.Context) (bool, error) {
		ids, err := env.Product.ActiveJobs(ctx, k.clientName)
		left = ids
		return len(left) == 0, err
	}, k.cond)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("jobs %v are still active on %s", left, k.clientName)
	}
	return nil
}

func (k *KillActiveJobs) TearDown(context.Context, *testcase.Env) error { return nil }

// LaptopIdle waits for the RunStatus of a laptop client to report idle.
type LaptopIdle struct {
	handle  *productapi.RunStatusHandle
	timeout time.Duration
}

func NewLaptopIdle() testcase.TestCase { return &LaptopIdle{} }

func (l *LaptopIdle) ID() string               { return LaptopIdleID }
func (l *LaptopIdle) Name() string             { return "Laptop backup reaches idle" }
func (l *LaptopIdle) RequiredInputs() []string { return []string{"ClientName", "SubclientId"} }

func (l *LaptopIdle) Setup(_ context.Context, env *testcase.Env) error {
	if err := requireProduct(env); err != nil {
		return err
	}
	timeout, err := env.Inputs.Minutes("TimeoutMinutes", waiter.DefaultTimeout)
	if err != nil {
		return err
	}
	l.timeout = timeout
	l.handle = productapi.NewRunStatusHandle(env.Product, env.Inputs.String("ClientName"), env.Inputs.String("SubclientId"))
	return nil
}

func (l *LaptopIdle) Run(ctx context.Context, env *testcase.Env) error {
	res, err := waiterFor(env).With(waiter.WithTimeout(l.timeout)).WaitForCompletion(ctx, l.handle)
	if err := waiter.RequireReached(l.handle.ID(), res, err); err != nil {
		return err
	}
	env.Log.Infow("laptop is idle", "polls", res.Polls, "elapsed", res.Elapsed)
	return nil
}

func (l *LaptopIdle) TearDown(context.Context, *testcase.Env) error { return nil }
