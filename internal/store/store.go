package store

import (
	"context"
	"database/sql"

	"github.com/backupqa/qa-agent/internal/store/migrations"
)

// Store provides access to all storage repositories.
type Store struct {
	db     *sql.DB
	runs   *RunStore
	waits  *WaitStore
	inputs *InputsStore
}

func NewStore(db *sql.DB) *Store {
	qi := NewQueryInterceptor(db)
	return &Store{
		db:     db,
		runs:   NewRunStore(qi),
		waits:  NewWaitStore(qi),
		inputs: NewInputsStore(qi),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, s.db)
}

func (s *Store) Runs() *RunStore {
	return s.runs
}

func (s *Store) Waits() *WaitStore {
	return s.waits
}

func (s *Store) Inputs() *InputsStore {
	return s.inputs
}

func (s *Store) Close() error {
	return s.db.Close()
}
