package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

// NewDB opens the DuckDB database at path. ":memory:" opens an in-memory database.
func NewDB(path string) (*sql.DB, error) {
	dsn := path
	if path == ":memory:" {
		dsn = ""
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}
	// DuckDB aborts concurrent upserts of the same row, so writes are serialized.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %q: %w", path, err)
	}
	return db, nil
}

// QueryInterceptor logs every statement before handing it to the database.
type QueryInterceptor struct {
	db *sql.DB
}

func NewQueryInterceptor(db *sql.DB) QueryInterceptor {
	return QueryInterceptor{db: db}
}

func (q QueryInterceptor) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	zap.S().Named("store").Debugw("query row", "sql", query, "args", args)
	return q.db.QueryRowContext(ctx, query, args...)
}

func (q QueryInterceptor) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	zap.S().Named("store").Debugw("query", "sql", query, "args", args)
	return q.db.QueryContext(ctx, query, args...)
}

func (q QueryInterceptor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	zap.S().Named("store").Debugw("exec", "sql", query, "args", args)
	return q.db.ExecContext(ctx, query, args...)
}
