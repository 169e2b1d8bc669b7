package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/connection"
	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/result"
)

// Adapter bundles a Connection with the Statement running on it.
type Adapter struct {
	conn *connection.Connection
	stmt *Statement
	opts []StatementOption
}

// NewAdapter creates an adapter for schema on database. The connection is
// opened by the first Prepare.
func NewAdapter(cfg *config.Config, schema, database string, connOpts ...connection.Option) (*Adapter, error) {
	conn, err := connection.New(cfg, schema, database, connOpts...)
	if err != nil {
		return nil, err
	}
	return &Adapter{conn: conn}, nil
}

// WithStatementOptions sets the options used for statements prepared by
// the adapter.
func (a *Adapter) WithStatementOptions(opts ...StatementOption) *Adapter {
	a.opts = opts
	return a
}

// Prepare replaces the adapter's SQL.
func (a *Adapter) Prepare(ctx context.Context, sqlText string) error {
	if a.stmt == nil {
		stmt, err := NewStatement(ctx, a.conn, sqlText, a.opts...)
		a.stmt = stmt
		return err
	}
	return a.stmt.SetSQL(ctx, sqlText)
}

func (a *Adapter) statement() (*Statement, error) {
	if a.stmt == nil {
		return nil, fmt.Errorf("%w: no statement prepared", dberror.ErrParse)
	}
	return a.stmt, nil
}

// Bind applies binds to the prepared statement.
func (a *Adapter) Bind(ctx context.Context, binds map[string]any) error {
	s, err := a.statement()
	if err != nil {
		return err
	}
	return s.Bind(ctx, binds)
}

// Execute runs the prepared statement.
func (a *Adapter) Execute(ctx context.Context, commit bool) error {
	s, err := a.statement()
	if err != nil {
		return err
	}
	return s.Execute(ctx, commit)
}

// Fetcher returns the fetcher of the prepared statement.
func (a *Adapter) Fetcher(ctx context.Context) (*Fetcher, error) {
	s, err := a.statement()
	if err != nil {
		return nil, err
	}
	return s.Fetcher(ctx)
}

// Fetch returns the next row, or nil when there are no more.
func (a *Adapter) Fetch(ctx context.Context, shape result.Shape) (*result.Row, error) {
	f, err := a.Fetcher(ctx)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, shape)
}

// FetchAll returns every remaining row.
func (a *Adapter) FetchAll(ctx context.Context, shape result.Shape) (*result.Result, error) {
	f, err := a.Fetcher(ctx)
	if err != nil {
		return nil, err
	}
	return f.FetchAll(ctx, shape)
}

// NumRows returns the affected or selected row count.
func (a *Adapter) NumRows(ctx context.Context) (int64, error) {
	f, err := a.Fetcher(ctx)
	if err != nil {
		return 0, err
	}
	return f.NumRows(ctx)
}

func (a *Adapter) Commit() error { return a.conn.Commit() }

func (a *Adapter) Rollback() error { return a.conn.Rollback() }

// ErrorMessage returns custom, extended with the last native error for
// privileged callers.
func (a *Adapter) ErrorMessage(custom string, privileged bool) string {
	var native *dberror.NativeError
	if a.stmt != nil {
		native = a.stmt.LastError()
	}
	return dberror.Message(custom, native, privileged)
}

// Statement returns the prepared statement, or nil.
func (a *Adapter) Statement() *Statement { return a.stmt }

// Connection returns the adapter's connection.
func (a *Adapter) Connection() *connection.Connection { return a.conn }

// Close closes the statement and the connection.
func (a *Adapter) Close() error {
	var errs []error
	if a.stmt != nil {
		errs = append(errs, a.stmt.Close())
	}
	errs = append(errs, a.conn.Close())
	return errors.Join(errs...)
}
