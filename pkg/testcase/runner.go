package testcase

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	serviceErrs "github.com/backupqa/qa-agent/pkg/errors"
)

// Runner drives a testcase through setup, run and tear down.
type Runner struct {
	now func() time.Time
}

func NewRunner() *Runner {
	return &Runner{now: time.Now}
}

// Run executes tc with env. Missing inputs fail the run before Setup.
// Once Setup was attempted TearDown always runs; its failure is reported
// in the result string but does not fail a passed run.
func (r *Runner) Run(ctx context.Context, tc TestCase, env *Env) Result {
	if env == nil {
		env = &Env{}
	}
	if env.Log == nil {
		env.Log = zap.S().Named("testcase").With("testcase", tc.ID())
	}
	log := env.Log

	res := Result{TestcaseID: tc.ID(), Name: tc.Name(), Started: r.now()}
	finish := func(err error, notes ...string) Result {
		res.Finished = r.now()
		res.Err = err
		res.Status = StatusPassed
		var parts []string
		if err != nil {
			res.Status = StatusFailed
			parts = append(parts, err.Error())
		}
		parts = append(parts, notes...)
		res.ResultString = strings.Join(parts, "; ")

		if res.Passed() {
			log.Infow("testcase passed", "name", res.Name, "duration", res.Duration())
		} else {
			log.Errorw("testcase failed", "name", res.Name, "duration", res.Duration(), "result", res.ResultString)
		}
		return res
	}

	if missing := env.Inputs.Missing(tc.RequiredInputs()...); len(missing) > 0 {
		return finish(serviceErrs.NewInvalidInputsError(tc.ID(), missing...))
	}

	log.Infow("started executing testcase", "name", tc.Name())

	err := r.step(ctx, "setup", tc.Setup, env)
	if err == nil {
		err = r.step(ctx, "run", tc.Run, env)
	}

	// tear down must run even when the run context is gone
	var notes []string
	if tdErr := r.step(context.WithoutCancel(ctx), "tear down", tc.TearDown, env); tdErr != nil {
		log.Warnw("tear down failed", "error", tdErr)
		notes = append(notes, tdErr.Error())
	}

	return finish(err, notes...)
}

func (r *Runner) step(ctx context.Context, name string, fn func(context.Context, *Env) error, env *Env) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			env.Log.Errorw("testcase panicked", "step", name, "panic", rec, "stack", string(debug.Stack()))
			err = fmt.Errorf("%s panicked: %v", name, rec)
		}
	}()

	env.Log.Debugw("testcase step", "step", name)
	if err := fn(ctx, env); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
