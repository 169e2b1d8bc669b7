package query

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/connection"
	"github.com/nnnkkk7/oraquery/pkg/dialect"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.Driver = "duckdb"
	cfg.DefaultSchema = "MAIN"
	cfg.DefaultDatabase = "MEMORY"
	return cfg
}

func setupTestDuckDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("Failed to open DuckDB: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close DuckDB: %v", err)
		}
	})
	return db
}

// setupTestConnection opens a connection to a private in-memory DuckDB
// and runs the given setup statements on it.
func setupTestConnection(t *testing.T, cfg *config.Config, setup ...string) *connection.Connection {
	t.Helper()

	conn, err := connection.New(cfg, "", "")
	if err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	for _, stmt := range setup {
		if _, err := conn.Exec(context.Background(), stmt); err != nil {
			t.Fatalf("Setup %q failed: %v", stmt, err)
		}
	}
	return conn
}

func setupTestStatement(t *testing.T, conn *connection.Connection, sqlText string, opts ...StatementOption) *Statement {
	t.Helper()

	stmt, err := NewStatement(context.Background(), conn, sqlText, opts...)
	if err != nil {
		t.Fatalf("NewStatement(%q) failed: %v", sqlText, err)
	}
	t.Cleanup(func() { _ = stmt.Close() })
	return stmt
}

// resellerSetup creates the table most statement tests run against.
var resellerSetup = []string{
	"CREATE TABLE resellers (id INTEGER, name VARCHAR, soort VARCHAR, created DATE, notes VARCHAR)",
	"INSERT INTO resellers VALUES (1, 'Acme', 'A', DATE '2024-03-05', NULL), (2, 'Globex', 'B', DATE '2024-03-06', 'vip'), (3, 'Initech', 'A', NULL, NULL)",
}

// fakeExec is one statement execution seen by the fake driver.
type fakeExec struct {
	query string
	args  []any
}

// fakeRecorder collects what the fake driver was asked to do. Executions
// with an argument equal to "bad" fail.
type fakeRecorder struct {
	mu        sync.Mutex
	execs     []fakeExec
	commits   int
	rollbacks int
}

func (r *fakeRecorder) execsFor(prefix string) []fakeExec {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []fakeExec
	for _, e := range r.execs {
		if strings.HasPrefix(strings.ToLower(e.query), prefix) {
			out = append(out, e)
		}
	}
	return out
}

type fakeConnector struct{ rec *fakeRecorder }

func (c *fakeConnector) Connect(context.Context) (driver.Conn, error) {
	return &fakeConn{rec: c.rec}, nil
}

func (c *fakeConnector) Driver() driver.Driver { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("fake: open through the connector")
}

type fakeConn struct{ rec *fakeRecorder }

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return &fakeStmt{rec: c.rec, query: query}, nil
}

func (c *fakeConn) Close() error { return nil }

func (c *fakeConn) Begin() (driver.Tx, error) { return &fakeTx{rec: c.rec}, nil }

func (c *fakeConn) CheckNamedValue(nv *driver.NamedValue) error {
	if _, ok := nv.Value.(sql.Out); ok {
		return nil
	}
	return driver.ErrSkip
}

type fakeStmt struct {
	rec   *fakeRecorder
	query string
}

func (s *fakeStmt) Close() error { return nil }

func (s *fakeStmt) NumInput() int { return -1 }

func (s *fakeStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.rec.mu.Lock()
	defer s.rec.mu.Unlock()

	values := make([]any, len(args))
	for i, arg := range args {
		if arg == "bad" {
			return nil, errors.New("ORA-01843: not a valid month")
		}
		if out, ok := arg.(sql.Out); ok {
			if dest, ok := out.Dest.(*string); ok {
				*dest = "from-driver"
			}
			values[i] = "OUT"
			continue
		}
		values[i] = arg
	}
	s.rec.execs = append(s.rec.execs, fakeExec{query: s.query, args: values})
	return driver.RowsAffected(1), nil
}

func (s *fakeStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, errors.New("fake: queries are not supported")
}

type fakeTx struct{ rec *fakeRecorder }

func (tx *fakeTx) Commit() error {
	tx.rec.mu.Lock()
	defer tx.rec.mu.Unlock()
	tx.rec.commits++
	return nil
}

func (tx *fakeTx) Rollback() error {
	tx.rec.mu.Lock()
	defer tx.rec.mu.Unlock()
	tx.rec.rollbacks++
	return nil
}

// statementRollbackDuckDB binds like DuckDB but keeps the transaction
// usable after a failed statement.
type statementRollbackDuckDB struct{ dialect.DuckDB }

func (statementRollbackDuckDB) StatementRollback() bool { return true }

// setupFakeConnection returns a connection whose session is served by the
// fake driver with DuckDB's positional binding.
func setupFakeConnection(t *testing.T, opts ...connection.Option) (*connection.Connection, *fakeRecorder) {
	t.Helper()

	rec := &fakeRecorder{}
	db := sql.OpenDB(&fakeConnector{rec: rec})
	t.Cleanup(func() { _ = db.Close() })

	conn, err := connection.New(testConfig(), "", "", append([]connection.Option{connection.WithDB(db)}, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create connection: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, rec
}
