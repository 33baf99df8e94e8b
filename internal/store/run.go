package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/backupqa/qa-agent/internal/models"
	srvErrors "github.com/backupqa/qa-agent/pkg/errors"
)

var runColumns = []string{"id", "testcase_id", "name", "status", "result", "inputs", "created_at", "started_at", "finished_at"}

type RunStore struct {
	db QueryInterceptor
}

func NewRunStore(db QueryInterceptor) *RunStore {
	return &RunStore{db: db}
}

func (s *RunStore) Create(ctx context.Context, run models.Run) error {
	inputs, err := encodeInputs(run.Inputs)
	if err != nil {
		return err
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, queryInsertRun,
		run.ID, run.TestcaseID, run.Name, string(run.Status), run.Result, inputs,
		run.CreatedAt, nullTime(run.StartedAt), nullTime(run.FinishedAt),
	)
	return err
}

// Update stores the status, result and timestamps of run.
func (s *RunStore) Update(ctx context.Context, run models.Run) error {
	res, err := s.db.ExecContext(ctx, queryUpdateRun,
		string(run.Status), run.Result, nullTime(run.StartedAt), nullTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return srvErrors.NewRunNotFoundError(run.ID)
	}
	return nil
}

func (s *RunStore) Get(ctx context.Context, id string) (*models.Run, error) {
	runs, err := s.List(ctx, func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{"id": id})
	})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, srvErrors.NewRunNotFoundError(id)
	}
	return &runs[0], nil
}

// List returns runs newest first.
func (s *RunStore) List(ctx context.Context, opts ...ListOption) ([]models.Run, error) {
	builder := sq.Select(runColumns...).From("runs")
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

	var runs []models.Run
	for rows.Next() {
		var (
			run               models.Run
			status, inputs    string
			started, finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.TestcaseID, &run.Name, &status, &run.Result, &inputs, &run.CreatedAt, &started, &finished); err != nil {
			return nil, err
		}
		run.Status = models.RunStatus(status)
		run.StartedAt = timePtr(started)
		run.FinishedAt = timePtr(finished)
		if run.Inputs, err = decodeInputs(inputs); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (s *RunStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	query, args, err := countable(sq.Select("COUNT(*)").From("runs"), opts).ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// FailUnfinished marks runs left pending or running, e.g. by a restart, as failed.
func (s *RunStore) FailUnfinished(ctx context.Context, reason string) (int64, error) {
	res, err := s.db.ExecContext(ctx, queryFailUnfinishedRuns, reason)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func encodeInputs(in map[string]any) (string, error) {
	if in == nil {
		return "{}", nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to encode inputs: %w", err)
	}
	return string(b), nil
}

func decodeInputs(data string) (map[string]any, error) {
	in := map[string]any{}
	if data == "" {
		return in, nil
	}
	if err := json.Unmarshal([]byte(data), &in); err != nil {
		return nil, fmt.Errorf("failed to decode inputs: %w", err)
	}
	return in, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
