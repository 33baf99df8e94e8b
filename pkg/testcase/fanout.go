package testcase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/pkg/scheduler"
)

// FanOut runs fn once per machine on the worker pool and waits for all of them.
// A failing machine does not stop the others. The returned map holds only the
// machines that failed.
func FanOut(ctx context.Context, sched *scheduler.Scheduler, machines []string, fn func(ctx context.Context, machine string) error) map[string]error {
	log := zap.S().Named("fanout")

	futures := make(map[string]*scheduler.Future[scheduler.Result[any]], len(machines))
	for _, m := range machines {
		machine := m
		futures[machine] = sched.AddNamedWork(machine, func(ctx context.Context) (any, error) {
			return nil, fn(ctx, machine)
		})
	}

	errs := make(map[string]error)
	for machine, f := range futures {
		res, err := f.Wait(ctx)
		if err == nil {
			err = res.Err
		}
		if err != nil {
			log.Warnw("machine failed", "machine", machine, "error", err)
			errs[machine] = fmt.Errorf("%s: %w", machine, err)
		}
	}
	log.Infow("fan out finished", "machines", len(machines), "failed", len(errs))
	return errs
}
