package testcases

import (
	"context"
	"errors"
	"fmt"

	"github.com/backupqa/qa-agent/pkg/testcase"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

var errNoProduct = errors.New("product client is not configured")

func requireProduct(env *testcase.Env) error {
	if env.Product == nil {
		return errNoProduct
	}
	return nil
}

func waiterFor(env *testcase.Env) *waiter.JobWaiter {
	if env.Waiter != nil {
		return env.Waiter
	}
	return waiter.New()
}

func killUnfinished(ctx context.Context, env *testcase.Env, h waiter.JobHandle, finished bool) error {
	if h == nil || finished {
		return nil
	}
	env.Log.Warnw("killing unfinished job", "job", h.ID())
	if err := h.Kill(ctx); err != nil {
		return fmt.Errorf("failed to kill job %s: %w", h.ID(), err)
	}
	return nil
}

// Register adds the built-in testcases to reg.
func Register(reg *testcase.Registry) *testcase.Registry {
	return reg.MustRegister(
		NewBackup,
		NewRestore,
		NewKillActiveJobs,
		NewLaptopIdle,
		NewVMSnapshot,
	)
}
