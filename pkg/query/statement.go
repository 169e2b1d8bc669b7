package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/connection"
	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/dialect"
	"github.com/nnnkkk7/oraquery/pkg/querylog"
	"github.com/nnnkkk7/oraquery/pkg/sqltext"
)

// StatementOption configures a Statement.
type StatementOption func(*Statement)

// WithQueryLogger sets the logger called after every execution.
func WithQueryLogger(l querylog.Logger) StatementOption {
	return func(s *Statement) { s.queryLog = l }
}

// WithClassifier replaces the default statement classifier.
func WithClassifier(c StatementClassifier) StatementOption {
	return func(s *Statement) { s.classifier = c }
}

// Statement owns SQL text and its prepared handle. Every SQL change closes
// the handle and prepares a new one.
type Statement struct {
	conn       *connection.Connection
	cfg        *config.Config
	dialect    dialect.Dialect
	log        logrus.FieldLogger
	queryLog   querylog.Logger
	classifier StatementClassifier

	sql      string
	rendered string
	markers  []string
	stmt     *sql.Stmt
	stmtType StatementType

	state   *ExecutionState
	lastErr *dberror.NativeError

	binder   *Binder
	executor StatementExecutor
	fetcher  *Fetcher
	closed   bool
}

// NewStatement prepares sqlText on conn.
func NewStatement(ctx context.Context, conn *connection.Connection, sqlText string, opts ...StatementOption) (*Statement, error) {
	s := &Statement{
		conn:       conn,
		cfg:        conn.Config(),
		dialect:    conn.Dialect(),
		log:        conn.Logger(),
		classifier: DefaultClassifier,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queryLog == nil && s.cfg.Logging {
		s.queryLog = querylog.NewLogrus(s.log, 0)
	}
	s.binder = newBinder(s)
	conn.Track(s)
	if err := s.parse(ctx, sqlText); err != nil {
		return s, err
	}
	return s, nil
}

// SetSQL replaces the SQL text. Binds applied to the previous text are
// forgotten.
func (s *Statement) SetSQL(ctx context.Context, sqlText string) error {
	s.binder.reset()
	return s.parse(ctx, sqlText)
}

// parse normalizes sqlText and prepares it, replacing the current handle.
func (s *Statement) parse(ctx context.Context, sqlText string) error {
	if s.closed {
		return dberror.ErrConnectionClosed
	}
	s.release()

	s.sql = sqltext.Normalize(sqlText)
	s.rendered, s.markers = s.dialect.Rebind(s.sql)
	s.stmtType = s.classifier.Classify(s.sql).Type

	conn, err := s.conn.Handle(ctx)
	if err != nil {
		return err
	}
	stmt, err := conn.PrepareContext(ctx, s.rendered)
	if err != nil {
		s.lastErr = s.dialect.NativeError(err)
		return fmt.Errorf("%w: %w", dberror.ErrParse, s.lastErr)
	}
	s.stmt = stmt

	if s.cfg.ValidateSQLSyntax {
		if _, err := s.explain(ctx); err != nil {
			return fmt.Errorf("%w: %w", dberror.ErrInvalidSQL, err)
		}
	}
	return nil
}

// release closes the handle and forgets execution state and companions
// bound to it.
func (s *Statement) release() {
	s.state.close()
	s.state = nil
	s.executor = nil
	s.fetcher = nil
	if s.stmt != nil {
		_ = s.stmt.Close()
		s.stmt = nil
	}
}

// ValidateSQLSyntax runs a dry-run plan of the statement and reports
// whether it succeeded.
func (s *Statement) ValidateSQLSyntax(ctx context.Context) bool {
	_, err := s.explain(ctx)
	return err == nil
}

// ExplainPlan returns the rendered execution plan. It costs one or two
// round trips and is meant for diagnostics.
func (s *Statement) ExplainPlan(ctx context.Context) (string, bool) {
	plan, err := s.explain(ctx)
	if err != nil {
		return "", false
	}
	return plan, true
}

func (s *Statement) explain(ctx context.Context) (string, error) {
	prepare, query := s.dialect.ExplainSQL(statementID(), s.sql)
	if prepare != "" {
		if _, err := s.conn.Exec(ctx, prepare); err != nil {
			s.lastErr = s.dialect.NativeError(err)
			return "", s.lastErr
		}
	}
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		s.lastErr = s.dialect.NativeError(err)
		return "", s.lastErr
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	var lines []string
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}
		if len(values) > 0 {
			lines = append(lines, textOf(values[len(values)-1]))
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

// statementID returns a plan table id. Oracle limits it to 30 characters.
func statementID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:30]
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// SQL returns the normalized SQL text.
func (s *Statement) SQL() string { return s.sql }

// StatementType returns the type of the current SQL.
func (s *Statement) StatementType() StatementType { return s.stmtType }

// Schema returns the schema of the statement's connection.
func (s *Statement) Schema() string { return s.conn.Schema() }

// Connection returns the connection the statement runs on.
func (s *Statement) Connection() *connection.Connection { return s.conn }

// Config returns the configuration in effect.
func (s *Statement) Config() *config.Config { return s.cfg }

// LastError returns the native error of the last failed driver call.
func (s *Statement) LastError() *dberror.NativeError { return s.lastErr }

// Executed reports whether the current SQL has been executed.
func (s *Statement) Executed() bool { return s.state != nil }

// State returns the execution state, or nil before execution.
func (s *Statement) State() *ExecutionState { return s.state }

// Binder returns the statement's binder.
func (s *Statement) Binder() *Binder { return s.binder }

// Executor returns the statement's executor, creating it on first use.
func (s *Statement) Executor() StatementExecutor {
	if s.executor == nil {
		s.executor = s.newExecutor()
	}
	return s.executor
}

func (s *Statement) newExecutor() StatementExecutor {
	if s.cfg.DryRun {
		return NewDryRunExecutor(s)
	}
	return NewExecutor(s, s.queryLog)
}

// Fetcher returns the statement's fetcher, creating (and if needed
// executing) it on first use.
func (s *Statement) Fetcher(ctx context.Context) (*Fetcher, error) {
	if s.fetcher != nil {
		return s.fetcher, nil
	}
	f, err := NewFetcher(ctx, s)
	if err != nil {
		return nil, err
	}
	s.fetcher = f
	return f, nil
}

// Execute runs the statement with a fresh executor unless it already ran.
func (s *Statement) Execute(ctx context.Context, commit bool) error {
	if s.state != nil {
		return s.state.Err
	}
	s.executor = s.newExecutor()
	return s.executor.Execute(ctx, commit)
}

// Bind applies binds to the statement.
func (s *Statement) Bind(ctx context.Context, binds map[string]any) error {
	return s.binder.Bind(ctx, binds)
}

// BindDiagnostics renders the applied binds, one "name => value" per line.
func (s *Statement) BindDiagnostics() string { return s.binder.Diagnostics() }

// String renders the SQL followed by the applied binds.
func (s *Statement) String() string {
	binds := s.BindDiagnostics()
	if binds == "" {
		return s.sql
	}
	return s.sql + "\n\n" + binds
}

// fail records the native error of a failed execution.
func (s *Statement) fail(err error) error {
	s.lastErr = s.dialect.NativeError(err)
	return fmt.Errorf("%w: %w", dberror.ErrExecution, s.lastErr)
}

// Close releases the prepared handle and any open rows. It is safe to call
// more than once. Closing the connection closes its statements.
func (s *Statement) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	s.conn.Untrack(s)
	return nil
}
