// Package waitertest provides a scripted JobHandle for tests.
package waitertest

import (
	"context"
	"sync"

	"github.com/backupqa/qa-agent/pkg/waiter"
)

// Step is one scripted answer to Status.
type Step struct {
	Status waiter.JobStatus
	Err    error
}

// Handle replays Steps in order and repeats the last one once the script is exhausted.
type Handle struct {
	id    string
	mu    sync.Mutex
	steps []Step
	pos   int
	polls int

	Killed  bool
	Paused  bool
	Resumed bool
	// ControlErr is returned by Kill, Pause and Resume when set.
	ControlErr error
}

func NewHandle(id string, steps ...Step) *Handle {
	return &Handle{id: id, steps: steps}
}

// States builds a script from bare states.
func States(id string, states ...waiter.JobState) *Handle {
	steps := make([]Step, 0, len(states))
	for _, s := range states {
		steps = append(steps, Step{Status: waiter.JobStatus{ID: id, State: s}})
	}
	return NewHandle(id, steps...)
}

func (h *Handle) ID() string { return h.id }

func (h *Handle) Status(ctx context.Context) (waiter.JobStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.polls++
	if len(h.steps) == 0 {
		return waiter.JobStatus{ID: h.id, State: waiter.StateRunning}, nil
	}
	step := h.steps[h.pos]
	if h.pos < len(h.steps)-1 {
		h.pos++
	}
	return step.Status, step.Err
}

// Push appends steps to the script. The step currently repeating is served once more first.
func (h *Handle) Push(steps ...Step) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, steps...)
}

func (h *Handle) Polls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.polls
}

func (h *Handle) Kill(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Killed = true
	return h.ControlErr
}

func (h *Handle) Pause(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Paused = true
	return h.ControlErr
}

func (h *Handle) Resume(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Resumed = true
	return h.ControlErr
}

var _ waiter.JobHandle = (*Handle)(nil)
