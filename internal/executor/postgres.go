package executor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"vizard/internal/logging"
)

// PostgresExecutor runs warehouse queries over a pgx connection pool.
type PostgresExecutor struct {
	pool *pgxpool.Pool
}

// NewPostgresExecutor connects to the warehouse at dsn.
func NewPostgresExecutor(ctx context.Context, dsn string) (*PostgresExecutor, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create warehouse pool: %w", err)
	}
	return &PostgresExecutor{pool: pool}, nil
}

// Execute runs the query and collects all rows as column-keyed maps.
func (e *PostgresExecutor) Execute(ctx context.Context, query string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	rows, err := e.pool.Query(ctx, query)
	if err != nil {
		return failure(err), nil
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = string(fd.Name)
	}

	var data []map[string]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return failure(err), nil
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return failure(err), nil
	}

	logging.Executor("warehouse query returned %d rows", len(data))
	return Result{Success: true, Data: data}, nil
}

// Close releases the pool.
func (e *PostgresExecutor) Close() {
	e.pool.Close()
}
