package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type fifo[T any] []T

func (q *fifo[T]) Len() int { return len(*q) }

func (q *fifo[T]) Pop() T {
	old := *q
	x := old[0]
	*q = old[1:]
	return x
}

func (q *fifo[T]) Push(t T) {
	*q = append(*q, t)
}

type workRequest struct {
	name string
	fn   Work[any]
	c    chan Result[any]
	ctx  context.Context
}

type worker struct {
	done     chan any
	wg       *sync.WaitGroup
	inFlight *atomic.Int32
}

func (w worker) Work(r workRequest) {
	start := time.Now()
	log := zap.S().Named("scheduler").With("work", r.name)
	w.inFlight.Add(1)

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorw("work panicked", "panic", rec)
			r.c <- Result[any]{Err: fmt.Errorf("worker panicked: %v", rec)}
		}
		w.inFlight.Add(-1)
		w.done <- struct{}{}
		w.wg.Done()
	}()

	log.Debug("work started")
	v, err := r.fn(r.ctx)
	log.Debugw("work finished", "duration", time.Since(start), "error", err)
	r.c <- Result[any]{Data: v, Err: err}
}

// Scheduler runs submitted work on a fixed pool of workers.
type Scheduler struct {
	workers    *fifo[worker]
	workQueue  *fifo[workRequest]
	close      chan any
	done       chan any
	work       chan workRequest
	mainCtx    context.Context
	mainCancel context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	inFlight   atomic.Int32
}

func NewScheduler(nbWorkers int) *Scheduler {
	if nbWorkers < 1 {
		nbWorkers = 1
	}
	done := make(chan any, nbWorkers)
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		workers:    &fifo[worker]{},
		workQueue:  &fifo[workRequest]{},
		close:      make(chan any),
		done:       done,
		work:       make(chan workRequest),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	for range nbWorkers {
		s.workers.Push(s.newWorker())
	}
	go s.run()
	return s
}

func (s *Scheduler) newWorker() worker {
	return worker{done: s.done, wg: &s.wg, inFlight: &s.inFlight}
}

func (s *Scheduler) AddWork(w Work[any]) *Future[Result[any]] {
	return s.AddNamedWork("anonymous", w)
}

// AddNamedWork is AddWork with a name used in logs.
func (s *Scheduler) AddNamedWork(name string, w Work[any]) *Future[Result[any]] {
	c := make(chan Result[any], 1)
	ctx, cancel := context.WithCancel(s.mainCtx)

	select {
	case <-s.mainCtx.Done():
		// closing: answer right away
		c <- Result[any]{Err: context.Canceled}
	case s.work <- workRequest{name: name, fn: w, c: c, ctx: ctx}:
	}

	return NewFuture(c, cancel)
}

// InFlight returns the number of work functions currently executing.
func (s *Scheduler) InFlight() int {
	return int(s.inFlight.Load())
}

func (s *Scheduler) Close() {
	s.once.Do(func() {
		s.mainCancel()
		s.close <- struct{}{}
		<-s.done
	})
}

func (s *Scheduler) run() {
	defer close(s.done)
	for {
		select {
		case w := <-s.work:
			s.workQueue.Push(w)
			s.dispatch()
		case <-s.done:
			s.workers.Push(s.newWorker())
			s.dispatch()
		case <-s.close:
			for s.workQueue.Len() > 0 {
				s.workQueue.Pop().c <- Result[any]{Err: context.Canceled}
			}
			s.wg.Wait()
			return
		}
	}
}

// dispatch pairs idle workers with queued work
func (s *Scheduler) dispatch() {
	for s.workers.Len() > 0 && s.workQueue.Len() > 0 {
		r := s.workQueue.Pop()
		w := s.workers.Pop()
		s.wg.Add(1)
		go w.Work(r)
	}
}
