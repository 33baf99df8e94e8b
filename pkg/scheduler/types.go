package scheduler

import (
	"context"
)

type Work[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	Data T
	Err  error
}

// Future is the pending result of submitted work.
type Future[T any] struct {
	input  chan T
	cancel context.CancelFunc
}

func NewFuture[T any](input chan T, cancel context.CancelFunc) *Future[T] {
	return &Future[T]{
		input:  input,
		cancel: cancel,
	}
}

// C receives exactly one value when the work completes.
func (f *Future[T]) C() chan T {
	return f.input
}

// Stop cancels the context of the work.
func (f *Future[T]) Stop() {
	f.cancel()
}

// Wait blocks for the result or until ctx is done, in which case the work is stopped.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case r := <-f.input:
		return r, nil
	case <-ctx.Done():
		f.cancel()
		var zero T
		return zero, ctx.Err()
	}
}
