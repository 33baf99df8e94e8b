package store

import (
	"context"

	"github.com/backupqa/qa-agent/internal/models"
	srvErrors "github.com/backupqa/qa-agent/pkg/errors"
)

// InputsStore keeps one tcinputs document per testcase.
type InputsStore struct {
	db QueryInterceptor
}

func NewInputsStore(db QueryInterceptor) *InputsStore {
	return &InputsStore{db: db}
}

func (s *InputsStore) Get(ctx context.Context, testcaseID string) (*models.StoredInputs, error) {
	row := s.db.QueryRowContext(ctx, queryGetInputs, testcaseID)

	stored := &models.StoredInputs{TestcaseID: testcaseID}
	var data string
	err := row.Scan(&data, &stored.UpdatedAt)
	if isNoRows(err) {
		return nil, srvErrors.NewInputsNotFoundError(testcaseID)
	}
	if err != nil {
		return nil, err
	}

	if stored.Inputs, err = decodeInputs(data); err != nil {
		return nil, err
	}
	return stored, nil
}

// Save stores or replaces the inputs of a testcase.
func (s *InputsStore) Save(ctx context.Context, testcaseID string, inputs map[string]any) error {
	data, err := encodeInputs(inputs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, queryUpsertInputs, testcaseID, data)
	return err
}

func (s *InputsStore) Delete(ctx context.Context, testcaseID string) error {
	_, err := s.db.ExecContext(ctx, queryDeleteInputs, testcaseID)
	return err
}
