package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/store"
	"github.com/backupqa/qa-agent/pkg/productapi"
	"github.com/backupqa/qa-agent/pkg/vmware"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

// WaitService records the history of job waits.
type WaitService struct {
	store *store.Store
}

func NewWaitService(st *store.Store) *WaitService {
	return &WaitService{store: st}
}

// Observe returns w with every finished wait recorded under runID.
func (s *WaitService) Observe(w *waiter.JobWaiter, runID string) *waiter.JobWaiter {
	return w.With(waiter.WithObserver(func(ctx context.Context, h waiter.JobHandle, res waiter.Result, err error) {
		s.Record(context.WithoutCancel(ctx), runID, h, res, err)
	}))
}

// Record stores the outcome of one wait. Storage errors are logged, never returned.
func (s *WaitService) Record(ctx context.Context, runID string, h waiter.JobHandle, res waiter.Result, waitErr error) {
	rec := models.WaitRecord{
		ID:          uuid.NewString(),
		RunID:       runID,
		JobID:       h.ID(),
		Kind:        kindOf(h),
		FinalState:  res.Status.State.String(),
		Phase:       res.Status.Phase,
		DelayReason: res.Status.DelayReason,
		Polls:       res.Polls,
		Elapsed:     res.Elapsed,
		Outcome:     outcomeOf(res, waitErr),
	}
	if waitErr != nil {
		rec.Error = waitErr.Error()
	}

	if err := s.store.Waits().Create(ctx, rec); err != nil {
		zap.S().Named("wait_service").Errorw("failed to record wait", "job", rec.JobID, "error", err)
	}
}

func kindOf(h waiter.JobHandle) models.WaitKind {
	switch h.(type) {
	case *productapi.RunStatusHandle:
		return models.WaitKindRunStatus
	case *vmware.TaskHandle:
		return models.WaitKindTask
	default:
		return models.WaitKindJob
	}
}

func outcomeOf(res waiter.Result, err error) models.WaitOutcome {
	switch {
	case err == nil && res.Reached:
		return models.WaitOutcomeSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return models.WaitOutcomeCanceled
	case waiter.IsTimeout(err):
		return models.WaitOutcomeTimedOut
	default:
		return models.WaitOutcomeFailed
	}
}

type WaitListParams struct {
	RunID    string
	JobIDs   []string
	Outcomes []string
	Limit    uint64
	Offset   uint64
}

type WaitListResult struct {
	Waits []models.WaitRecord
	Total int
}

func (s *WaitService) List(ctx context.Context, params WaitListParams) (*WaitListResult, error) {
	filters := []store.ListOption{
		store.ByRun(params.RunID),
		store.ByJob(params.JobIDs...),
		store.ByOutcome(params.Outcomes...),
	}

	opts := append([]store.ListOption{}, filters...)
	if params.Limit > 0 {
		opts = append(opts, store.WithLimit(params.Limit))
	}
	if params.Offset > 0 {
		opts = append(opts, store.WithOffset(params.Offset))
	}

	waits, err := s.store.Waits().List(ctx, opts...)
	if err != nil {
		return nil, err
	}
	total, err := s.store.Waits().Count(ctx, filters...)
	if err != nil {
		return nil, err
	}
	return &WaitListResult{Waits: waits, Total: total}, nil
}
