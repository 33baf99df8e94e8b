package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/store"
	srvErrors "github.com/backupqa/qa-agent/pkg/errors"
	"github.com/backupqa/qa-agent/pkg/scheduler"
	"github.com/backupqa/qa-agent/pkg/testcase"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

type activeRun struct {
	runID      string
	testcaseID string
	future     *scheduler.Future[scheduler.Result[any]]
	done       chan struct{}

	mu       sync.Mutex
	started  bool
	canceled bool
}

// begin reports whether the run may start. A run canceled while queued never starts.
func (a *activeRun) begin(ctx context.Context) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.canceled || ctx.Err() != nil {
		return false
	}
	a.started = true
	return true
}

// cancelPending marks a queued run canceled. It returns false once the run started.
func (a *activeRun) cancelPending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return false
	}
	a.canceled = true
	return true
}

// RunService executes testcases on the worker pool and keeps their history.
// At most one run per testcase is active at a time.
type RunService struct {
	store     *store.Store
	registry  *testcase.Registry
	scheduler *scheduler.Scheduler
	runner    *testcase.Runner
	waits     *WaitService
	env       testcase.Env

	mu     sync.Mutex
	active map[string]*activeRun
}

// NewRunService creates the service. env is copied for every run with the run's inputs.
func NewRunService(st *store.Store, reg *testcase.Registry, s *scheduler.Scheduler, waits *WaitService, env testcase.Env) *RunService {
	if env.Waiter == nil {
		env.Waiter = waiter.New()
	}
	return &RunService{
		store:     st,
		registry:  reg,
		scheduler: s,
		runner:    testcase.NewRunner(),
		waits:     waits,
		env:       env,
		active:    make(map[string]*activeRun),
	}
}

func (s *RunService) Testcases() []testcase.Info {
	return s.registry.List()
}

// Start queues a run of testcaseID. Nil inputs fall back to the stored inputs of the testcase.
func (s *RunService) Start(ctx context.Context, testcaseID string, inputs map[string]any) (*models.Run, error) {
	info, err := s.registry.Get(testcaseID)
	if err != nil {
		return nil, err
	}

	if inputs == nil {
		stored, err := s.store.Inputs().Get(ctx, testcaseID)
		switch {
		case err == nil:
			inputs = stored.Inputs
		case srvErrors.IsResourceNotFoundError(err):
			inputs = map[string]any{}
		default:
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.active[testcaseID]; running {
		return nil, srvErrors.NewRunInProgressError(testcaseID)
	}

	run := models.Run{
		ID:         uuid.NewString(),
		TestcaseID: testcaseID,
		Name:       info.Name,
		Status:     models.RunStatusPending,
		Inputs:     inputs,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Runs().Create(ctx, run); err != nil {
		return nil, err
	}

	a := &activeRun{runID: run.ID, testcaseID: testcaseID, done: make(chan struct{})}
	a.future = s.scheduler.AddNamedWork("run "+testcaseID, func(ctx context.Context) (any, error) {
		s.execute(ctx, a, run)
		return nil, nil
	})
	s.active[testcaseID] = a
	go s.watch(a, run)

	zap.S().Named("run_service").Infow("run queued", "run", run.ID, "testcase", testcaseID)
	return &run, nil
}

func (s *RunService) execute(ctx context.Context, a *activeRun, run models.Run) {
	log := zap.S().Named("run_service").With("run", run.ID, "testcase", run.TestcaseID)

	if !a.begin(ctx) {
		log.Info("run canceled before it started")
		return
	}

	tc, err := s.registry.New(run.TestcaseID)
	if err != nil {
		log.Errorw("failed to create testcase", "error", err)
		return
	}

	started := time.Now().UTC()
	run.Status = models.RunStatusRunning
	run.StartedAt = &started
	if err := s.store.Runs().Update(ctx, run); err != nil {
		log.Errorw("failed to mark run as running", "error", err)
	}

	env := s.env
	env.Inputs = testcase.Inputs(run.Inputs)
	env.Log = log
	env.Waiter = s.waits.Observe(s.env.Waiter, run.ID)

	res := s.runner.Run(ctx, tc, &env)

	finished := res.Finished.UTC()
	run.FinishedAt = &finished
	run.Result = res.ResultString
	switch {
	case res.Passed():
		run.Status = models.RunStatusPassed
	case ctx.Err() != nil:
		run.Status = models.RunStatusCanceled
	default:
		run.Status = models.RunStatusFailed
	}

	if err := s.store.Runs().Update(context.WithoutCancel(ctx), run); err != nil {
		log.Errorw("failed to store run result", "error", err)
	}
}

// watch releases the testcase once the work is done. Work dropped by a closing
// scheduler never ran, so its run is marked canceled here.
func (s *RunService) watch(a *activeRun, run models.Run) {
	res := <-a.future.C()

	if errors.Is(res.Err, context.Canceled) {
		s.markCanceled(context.Background(), run.ID)
	}

	s.release(a)
	close(a.done)
}

// release frees the testcase unless a newer run already took its place.
func (s *RunService) release(a *activeRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[a.testcaseID] == a {
		delete(s.active, a.testcaseID)
	}
}

// markCanceled finishes a run that is still pending in the store.
func (s *RunService) markCanceled(ctx context.Context, runID string) {
	stored, err := s.store.Runs().Get(ctx, runID)
	if err != nil || stored.Status != models.RunStatusPending {
		return
	}
	now := time.Now().UTC()
	stored.Status = models.RunStatusCanceled
	stored.Result = "run canceled before it started"
	stored.FinishedAt = &now
	if err := s.store.Runs().Update(ctx, *stored); err != nil {
		zap.S().Named("run_service").Errorw("failed to cancel run", "run", runID, "error", err)
	}
}

func (s *RunService) findActive(runID string) *activeRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.active {
		if a.runID == runID {
			return a
		}
	}
	return nil
}

// Cancel stops an active run. A queued run is canceled at once without waiting
// for a worker; a started run is awaited. Finished runs are returned unchanged.
func (s *RunService) Cancel(ctx context.Context, runID string) (*models.Run, error) {
	if a := s.findActive(runID); a != nil {
		zap.S().Named("run_service").Infow("canceling run", "run", runID)
		if a.cancelPending() {
			a.future.Stop()
			s.markCanceled(ctx, runID)
			s.release(a)
			return s.store.Runs().Get(ctx, runID)
		}
		a.future.Stop()
		select {
		case <-a.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.store.Runs().Get(ctx, runID)
}

// Await blocks until the run finished and returns its final record.
func (s *RunService) Await(ctx context.Context, runID string) (*models.Run, error) {
	if a := s.findActive(runID); a != nil {
		select {
		case <-a.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.store.Runs().Get(ctx, runID)
}

func (s *RunService) Get(ctx context.Context, runID string) (*models.Run, error) {
	return s.store.Runs().Get(ctx, runID)
}

type RunListParams struct {
	TestcaseIDs []string
	Statuses    []string
	Limit       uint64
	Offset      uint64
}

type RunListResult struct {
	Runs  []models.Run
	Total int
}

func (s *RunService) List(ctx context.Context, params RunListParams) (*RunListResult, error) {
	filters := []store.ListOption{
		store.ByTestcase(params.TestcaseIDs...),
		store.ByStatus(params.Statuses...),
	}

	opts := append([]store.ListOption{}, filters...)
	if params.Limit > 0 {
		opts = append(opts, store.WithLimit(params.Limit))
	}
	if params.Offset > 0 {
		opts = append(opts, store.WithOffset(params.Offset))
	}

	runs, err := s.store.Runs().List(ctx, opts...)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Runs().Count(ctx, filters...)
	if err != nil {
		return nil, err
	}
	return &RunListResult{Runs: runs, Total: total}, nil
}

func (s *RunService) SaveInputs(ctx context.Context, testcaseID string, inputs map[string]any) error {
	if _, err := s.registry.Get(testcaseID); err != nil {
		return err
	}
	return s.store.Inputs().Save(ctx, testcaseID, inputs)
}

func (s *RunService) Inputs(ctx context.Context, testcaseID string) (*models.StoredInputs, error) {
	if _, err := s.registry.Get(testcaseID); err != nil {
		return nil, err
	}
	return s.store.Inputs().Get(ctx, testcaseID)
}

// RecoverInterrupted fails runs left unfinished by a previous agent process.
func (s *RunService) RecoverInterrupted(ctx context.Context) error {
	n, err := s.store.Runs().FailUnfinished(ctx, "agent stopped before the run finished")
	if err != nil {
		return err
	}
	if n > 0 {
		zap.S().Named("run_service").Warnw("marked interrupted runs as failed", "count", n)
	}
	return nil
}
