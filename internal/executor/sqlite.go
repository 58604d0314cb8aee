package executor

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"vizard/internal/logging"
)

// SQLiteExecutor runs queries against the local row store.
type SQLiteExecutor struct {
	db *sql.DB
}

// NewSQLiteExecutor opens the row store at path (":memory:" for tests).
func NewSQLiteExecutor(path string) (*SQLiteExecutor, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open row store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Executor("failed to set busy_timeout: %v", err)
	}
	return &SQLiteExecutor{db: db}, nil
}

// NewSQLiteExecutorFromDB wraps an existing handle; the caller keeps
// ownership of the handle's lifecycle.
func NewSQLiteExecutorFromDB(db *sql.DB) *SQLiteExecutor {
	return &SQLiteExecutor{db: db}
}

// Execute runs the query and collects all rows as column-keyed maps.
func (e *SQLiteExecutor) Execute(ctx context.Context, query string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return failure(err), nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return failure(err), nil
	}

	var data []map[string]any
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return failure(err), nil
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return failure(err), nil
	}

	logging.Executor("row store query returned %d rows", len(data))
	return Result{Success: true, Data: data}, nil
}

// Close releases the underlying database.
func (e *SQLiteExecutor) Close() error {
	return e.db.Close()
}
