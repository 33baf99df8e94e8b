package store

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/backupqa/qa-agent/internal/models"
)

type WaitStore struct {
	db QueryInterceptor
}

func NewWaitStore(db QueryInterceptor) *WaitStore {
	return &WaitStore{db: db}
}

func (s *WaitStore) Create(ctx context.Context, w models.WaitRecord) error {
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, queryInsertWait,
		w.ID, w.RunID, w.JobID, string(w.Kind), w.FinalState, w.Phase, w.DelayReason,
		w.Polls, w.Elapsed.Milliseconds(), string(w.Outcome), w.Error, w.CreatedAt,
	)
	return err
}

// List returns waits newest first.
func (s *WaitStore) List(ctx context.Context, opts ...ListOption) ([]models.WaitRecord, error) {
	builder := sq.Select(
		"id", "run_id", "job_id", "kind", "final_state", "phase", "delay_reason",
		"polls", "elapsed_ms", "outcome", "error", "created_at",
	).From("waits")
	for _, opt := range opts {
		builder = opt(builder)
	}
	builder = builder.OrderBy("created_at DESC", "id")

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waits []models.WaitRecord
	for rows.Next() {
		var (
			w             models.WaitRecord
			kind, outcome string
			elapsedMs     int64
		)
		if err := rows.Scan(&w.ID, &w.RunID, &w.JobID, &kind, &w.FinalState, &w.Phase, &w.DelayReason,
			&w.Polls, &elapsedMs, &outcome, &w.Error, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.Kind = models.WaitKind(kind)
		w.Outcome = models.WaitOutcome(outcome)
		w.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		waits = append(waits, w)
	}

	return waits, rows.Err()
}

func (s *WaitStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	query, args, err := countable(sq.Select("COUNT(*)").From("waits"), opts).ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}
