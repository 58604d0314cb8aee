// Package executor runs data-fetch queries on behalf of the session manager.
// Two backends: the local SQLite row store and the Postgres warehouse. The
// session manager treats them interchangeably by message type.
package executor

import "context"

// Result is the uniform execution outcome shipped back over the session.
type Result struct {
	Success bool             `json:"success"`
	Data    []map[string]any `json:"data,omitempty"`
	Errors  []string         `json:"errors,omitempty"`
}

// Executor runs one query and reports rows or errors. Execution failures are
// part of the Result, not the error return; the error is reserved for
// context cancellation.
type Executor interface {
	Execute(ctx context.Context, query string) (Result, error)
}

func failure(err error) Result {
	return Result{Success: false, Errors: []string{err.Error()}}
}
