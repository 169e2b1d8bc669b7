package query

import (
	"context"
)

// StatementExecutor executes a prepared statement. Executor talks to the
// database; DryRunExecutor only validates syntax.
type StatementExecutor interface {
	// Execute runs the statement at most once. Later calls return the
	// first outcome.
	Execute(ctx context.Context, commit bool) error

	// Insert executes an INSERT and returns the current value of sequence.
	Insert(ctx context.Context, sequence string, commit bool) (int64, error)

	// ExecuteMultiple executes the statement once per row and returns the
	// number of rows that failed.
	ExecuteMultiple(ctx context.Context, names []string, maxSizes []int, rows [][]string, commit bool) (int, error)

	// Commit commits the connection's transaction.
	Commit() error

	// Rollback rolls back the connection's transaction.
	Rollback() error
}

// StatementClassifier defines the interface for SQL classification.
type StatementClassifier interface {
	// Classify analyzes a SQL statement and returns its classification.
	Classify(sql string) ClassifyResult
}
