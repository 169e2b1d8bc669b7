package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/querylog"
)

// Executor runs a Statement against its connection.
type Executor struct {
	stmt *Statement
	log  querylog.Logger
}

// NewExecutor creates an executor for s. A nil logger disables query
// logging.
func NewExecutor(s *Statement, l querylog.Logger) *Executor {
	return &Executor{stmt: s, log: l}
}

// Execute runs the statement once. With commit a successful non-query is
// committed together with any pending connection transaction; without it
// the statement joins the connection transaction, which is opened on
// demand. Queries never open a transaction.
func (e *Executor) Execute(ctx context.Context, commit bool) error {
	s := e.stmt
	if s.state != nil {
		return s.state.Err
	}
	if s.stmt == nil {
		return fmt.Errorf("%w: statement is not prepared", dberror.ErrParse)
	}

	state := &ExecutionState{Commit: commit, Started: time.Now()}
	args := s.binder.args(s.markers, true)

	var err error
	if s.stmtType.IsQuery() {
		state.Rows, err = e.query(ctx, args)
	} else {
		state.Result, err = e.exec(ctx, args, commit)
	}
	state.Duration = time.Since(state.Started)

	switch {
	case err != nil:
		state.Err = s.fail(err)
	case commit && !s.stmtType.IsQuery():
		state.Err = s.conn.Commit()
	}
	s.state = state
	e.logQuery(state.Started)
	return state.Err
}

func (e *Executor) query(ctx context.Context, args []any) (*sql.Rows, error) {
	s := e.stmt
	if tx := s.conn.Tx(); tx != nil {
		return tx.StmtContext(ctx, s.stmt).QueryContext(ctx, args...)
	}
	return s.stmt.QueryContext(ctx, args...)
}

func (e *Executor) exec(ctx context.Context, args []any, commit bool) (sql.Result, error) {
	s := e.stmt
	tx := s.conn.Tx()
	if tx == nil && !commit {
		var err error
		if tx, err = s.conn.Begin(ctx); err != nil {
			return nil, err
		}
	}
	if tx != nil {
		return tx.StmtContext(ctx, s.stmt).ExecContext(ctx, args...)
	}
	return s.stmt.ExecContext(ctx, args...)
}

// Insert executes an INSERT and returns the current value of sequence.
// Other statement types and an empty sequence yield ErrNoInsertID.
func (e *Executor) Insert(ctx context.Context, sequence string, commit bool) (int64, error) {
	s := e.stmt
	if s.stmtType != StatementTypeInsert || sequence == "" {
		return 0, dberror.ErrNoInsertID
	}
	query, err := s.dialect.SequenceValueSQL(sequence)
	if err != nil {
		return 0, err
	}
	if err := e.Execute(ctx, commit); err != nil {
		return 0, err
	}

	row, err := s.conn.QueryRow(ctx, query)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := row.Scan(&id); err != nil {
		s.lastErr = s.dialect.NativeError(err)
		return 0, fmt.Errorf("%w: %w", dberror.ErrNoInsertID, s.lastErr)
	}
	return id, nil
}

// ExecuteMultiple executes the statement once per row, binding row[i] to
// names[i]. Values are cut to maxSizes[i] characters and trimmed; missing
// values bind NULL. A failing row is counted and skipped. With commit the
// batch is committed once at the end.
//
// Dialects without statement-level rollback cannot skip a failed row inside
// one transaction. With commit and no open transaction every row is then
// committed on its own. Otherwise the first failing row rolls back the
// connection transaction and ends the batch with ErrExecution.
func (e *Executor) ExecuteMultiple(ctx context.Context, names []string, maxSizes []int, rows [][]string, commit bool) (int, error) {
	s := e.stmt
	if s.stmt == nil {
		return 0, fmt.Errorf("%w: statement is not prepared", dberror.ErrParse)
	}

	start := time.Now()
	defer e.logQuery(start)

	if !s.dialect.StatementRollback() && commit && s.conn.Tx() == nil {
		return e.executeRowwise(ctx, names, maxSizes, rows)
	}

	failures := 0
	run := func(tx *sql.Tx) error {
		stmt := tx.StmtContext(ctx, s.stmt)
		for n, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.bindRow(ctx, names, maxSizes, row); err != nil {
				return err
			}
			if _, err := stmt.ExecContext(ctx, s.binder.args(s.markers, false)...); err != nil {
				failures++
				s.lastErr = s.dialect.NativeError(err)
				s.log.WithError(err).WithField("row", n).Debug("batch row failed")
				if !s.dialect.StatementRollback() {
					return fmt.Errorf("%w: row %d aborted the transaction: %w", dberror.ErrExecution, n, s.lastErr)
				}
			}
		}
		return nil
	}

	if commit {
		return failures, s.conn.ExecTx(ctx, run)
	}
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return failures, err
	}
	if err := run(tx); err != nil {
		if !s.dialect.StatementRollback() {
			if rbErr := s.conn.Rollback(); rbErr != nil {
				return failures, errors.Join(err, rbErr)
			}
		}
		return failures, err
	}
	return failures, nil
}

// executeRowwise commits every row in its own transaction.
func (e *Executor) executeRowwise(ctx context.Context, names []string, maxSizes []int, rows [][]string) (int, error) {
	s := e.stmt
	failures := 0
	for n, row := range rows {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if err := e.bindRow(ctx, names, maxSizes, row); err != nil {
			return failures, err
		}
		args := s.binder.args(s.markers, false)
		err := s.conn.ExecTx(ctx, func(tx *sql.Tx) error {
			_, err := tx.StmtContext(ctx, s.stmt).ExecContext(ctx, args...)
			return err
		})
		if errors.Is(err, dberror.ErrConnectionClosed) {
			return failures, err
		}
		if err != nil {
			failures++
			s.lastErr = s.dialect.NativeError(err)
			s.log.WithError(err).WithField("row", n).Debug("batch row failed")
		}
	}
	return failures, nil
}

func (e *Executor) bindRow(ctx context.Context, names []string, maxSizes []int, row []string) error {
	binds := make([]Bind, len(names))
	for i, name := range names {
		binds[i] = Bind{Name: name, Value: cellValue(row, i, maxSizes)}
	}
	return e.stmt.binder.BindOrdered(ctx, binds)
}

func cellValue(row []string, i int, maxSizes []int) any {
	if i >= len(row) {
		return nil
	}
	v := row[i]
	if i < len(maxSizes) && maxSizes[i] > 0 {
		if r := []rune(v); len(r) > maxSizes[i] {
			v = string(r[:maxSizes[i]])
		}
	}
	return strings.TrimSpace(v)
}

// Commit commits the connection transaction.
func (e *Executor) Commit() error { return e.stmt.conn.Commit() }

// Rollback rolls back the connection transaction.
func (e *Executor) Rollback() error { return e.stmt.conn.Rollback() }

func (e *Executor) logQuery(start time.Time) {
	if e.log == nil {
		return
	}
	_ = e.log.Log(start, e.stmt.sql, e.stmt.binder.Diagnostics())
}

var _ StatementExecutor = (*Executor)(nil)
