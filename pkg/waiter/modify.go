package waiter

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Action is a control operation on a running job.
type Action string

const (
	ActionSuspend Action = "suspend"
	ActionResume  Action = "resume"
	ActionKill    Action = "kill"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionSuspend, ActionResume, ActionKill:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unsupported job action %q: must be suspend, resume or kill", s)
	}
}

var actionStates = map[Action][]JobState{
	ActionSuspend: {StateSuspended},
	ActionResume:  {StateRunning, StateWaiting, StatePending, StateQueued, StateCompleted},
	ActionKill:    {StateKilled},
}

// ModifyJob applies action to the job and waits for the state the action should produce.
func (w *JobWaiter) ModifyJob(ctx context.Context, h JobHandle, action Action) (Result, error) {
	states, ok := actionStates[action]
	if !ok {
		return Result{}, fmt.Errorf("unsupported job action %q", action)
	}

	var err error
	switch action {
	case ActionSuspend:
		err = h.Pause(ctx)
	case ActionResume:
		err = h.Resume(ctx)
	case ActionKill:
		err = h.Kill(ctx)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to %s job %s: %w", action, h.ID(), err)
	}

	zap.S().Named("job_waiter").Infow("job action submitted", "job", h.ID(), "action", action)

	return w.WaitForState(ctx, h, states...)
}
