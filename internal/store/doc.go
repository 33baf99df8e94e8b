// Package store implements the data access layer of the qa-agent.
//
// Runs, wait records and stored testcase inputs are persisted in DuckDB.
// The schema is owned by the embedded migrations in internal/store/migrations/sql/.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Store (facade)                          │
//	├─────────────────────┬─────────────────────┬─────────────────────┤
//	│      RunStore       │      WaitStore      │     InputsStore     │
//	│         ▼           │         ▼           │         ▼           │
//	│        runs         │        waits        │   testcase_inputs   │
//	├─────────────────────┴─────────────────────┴─────────────────────┤
//	│                 QueryInterceptor (debug logging)                │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Tables
//
//	┌────────────────────┬─────────────────────────────────────────────┐
//	│  Table             │  Purpose                                    │
//	├────────────────────┼─────────────────────────────────────────────┤
//	│  runs              │  One row per testcase run and its status    │
//	│  testcase_inputs   │  Last inputs document saved per testcase    │
//	│  waits             │  Outcome of every job wait, linked to a run │
//	│  schema_migrations │  Migration version tracking                 │
//	└────────────────────┴─────────────────────────────────────────────┘
//
// # Initialization Flow
//
//	NewDB(path)           → opens DuckDB (":memory:" when no data folder is set)
//	NewStore(db)          → wraps db with a QueryInterceptor, builds sub-stores
//	Store.Migrate(ctx)    → applies pending migrations in order
//
// # RunStore
//
// Methods:
//   - Create(ctx, run) / Update(ctx, run)
//   - Get(ctx, id) → *models.Run, ResourceNotFoundError when missing
//   - List(ctx, opts...) / Count(ctx, opts...)
//   - FailUnfinished(ctx, reason) → marks pending and running rows failed
//
// Inputs are stored as a JSON document in a VARCHAR column.
//
// # WaitStore
//
// Append-only. Create(ctx, record), List(ctx, opts...) and Count(ctx, opts...).
// The elapsed time is stored in milliseconds.
//
// # InputsStore
//
// Keyed by testcase id. Save uses INSERT ... ON CONFLICT DO UPDATE so the
// latest document wins and updated_at moves forward.
//
// # List Options
//
// List and Count take functional ListOption values that modify the squirrel
// SelectBuilder:
//
//	runs, err := store.Runs().List(ctx,
//	    store.ByTestcase("backup"),
//	    store.ByStatus("failed", "canceled"),
//	    store.WithLimit(20),
//	    store.WithOffset(40),
//	)
//
// Filtering options:
//   - ByTestcase(ids ...string), ByStatus(statuses ...string) for runs
//   - ByRun(runID), ByJob(jobIDs ...string), ByOutcome(outcomes ...string) for waits
//
// Multiple values of one option use OR logic. Different options are ANDed.
//
// Pagination options WithLimit and WithOffset are ignored by Count.
//
// List always orders by created_at DESC with id as tie-breaker so pages are stable.
//
// # QueryInterceptor
//
// All database operations go through a QueryInterceptor that logs the query
// and its arguments at debug level:
//   - QueryRowContext
//   - QueryContext
//   - ExecContext
package store
