// Package connection provides a lazily opened database session with a
// connection-wide transaction scope.
package connection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/dialect"
)

// Queryer is satisfied by both *sql.Conn and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Option configures a Connection.
type Option func(*Connection)

// WithDialect overrides the dialect selected by the configured driver.
func WithDialect(d dialect.Dialect) Option {
	return func(c *Connection) { c.dialect = d }
}

// WithDB makes the connection take its session from an existing pool
// instead of opening one. The pool is not closed by Close.
func WithDB(db *sql.DB) Option {
	return func(c *Connection) { c.db = db }
}

// WithLogger sets the logger used for session events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Connection) { c.log = l }
}

// Connection owns one database session, opened on first use.
//
// A Connection is meant for a single caller. The mutex only protects the
// open and close transitions.
type Connection struct {
	cfg      *config.Config
	schema   string
	database string
	dialect  dialect.Dialect
	log      logrus.FieldLogger

	mu     sync.Mutex
	db     *sql.DB
	ownsDB bool
	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
	owned  map[io.Closer]struct{}
}

// New creates a connection for schema on database. Empty values fall back
// to the configured defaults.
func New(cfg *config.Config, schema, database string, opts ...Option) (*Connection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", dberror.ErrConfiguration)
	}
	if schema == "" {
		schema = cfg.String(config.KeyDefaultSchema)
	}
	if database == "" {
		database = cfg.String(config.KeyDefaultDatabase)
	}
	if schema == "" || database == "" {
		return nil, fmt.Errorf("%w: schema and database are required", dberror.ErrConfiguration)
	}

	c := &Connection{
		cfg:      cfg,
		schema:   strings.ToUpper(schema),
		database: strings.ToUpper(database),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialect == nil {
		d, err := dialect.Lookup(cfg.Driver)
		if err != nil {
			return nil, err
		}
		c.dialect = d
	}
	return c, nil
}

// Schema returns the upper-cased schema name.
func (c *Connection) Schema() string { return c.schema }

// Database returns the upper-cased database name.
func (c *Connection) Database() string { return c.database }

// Dialect returns the dialect of the session.
func (c *Connection) Dialect() dialect.Dialect { return c.dialect }

// Config returns the configuration the connection was built with.
func (c *Connection) Config() *config.Config { return c.cfg }

// Logger returns the connection's logger.
func (c *Connection) Logger() logrus.FieldLogger { return c.log }

// Handle returns the session, opening it on the first call.
func (c *Connection) Handle(ctx context.Context) (*sql.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handleLocked(ctx)
}

func (c *Connection) handleLocked(ctx context.Context) (*sql.Conn, error) {
	if c.closed {
		return nil, dberror.ErrConnectionClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}
	if err := c.open(ctx); err != nil {
		return nil, err
	}
	return c.conn, nil
}

func (c *Connection) open(ctx context.Context) error {
	if c.db == nil {
		db, err := c.openDB()
		if err != nil {
			return err
		}
		c.db = db
		c.ownsDB = true
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		c.closeOwnedDB()
		return fmt.Errorf("%w: %s@%s: %w", dberror.ErrAuthentication, c.schema, c.database, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		c.closeOwnedDB()
		return fmt.Errorf("%w: %s@%s: %w", dberror.ErrAuthentication, c.schema, c.database, err)
	}

	if setup := c.dialect.SessionSetup(); setup != "" {
		if _, err := conn.ExecContext(ctx, setup); err != nil {
			_ = conn.Close()
			c.closeOwnedDB()
			return fmt.Errorf("%w: session setup: %w", dberror.ErrAuthentication, err)
		}
	}

	c.conn = conn
	c.log.WithFields(logrus.Fields{
		"driver":   c.dialect.Name(),
		"schema":   c.schema,
		"database": c.database,
	}).Debug("session opened")
	return nil
}

func (c *Connection) openDB() (*sql.DB, error) {
	creds := dialect.Credentials{Schema: c.schema, Database: c.database}

	if c.dialect.RequiresCredentials() {
		pw, err := c.cfg.Credential(c.database, c.schema)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", dberror.ErrConfiguration, err)
		}
		desc, err := c.cfg.Descriptor(c.database)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", dberror.ErrConfiguration, err)
		}
		creds.Password, creds.Descriptor = pw, desc
	} else if desc, err := c.cfg.Descriptor(c.database); err == nil {
		creds.Descriptor = desc
	}

	dsn, err := c.dialect.DSN(creds)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(c.dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dberror.ErrConfiguration, err)
	}
	return db, nil
}

func (c *Connection) closeOwnedDB() {
	if c.ownsDB && c.db != nil {
		_ = c.db.Close()
		c.db = nil
		c.ownsDB = false
	}
}

// queryer returns the open transaction, or the session when there is none.
func (c *Connection) queryer(ctx context.Context) (Queryer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conn, err := c.handleLocked(ctx)
	if err != nil {
		return nil, err
	}
	if c.tx != nil {
		return c.tx, nil
	}
	return conn, nil
}

// Query runs a query inside the open transaction, if any.
func (c *Connection) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	q, err := c.queryer(ctx)
	if err != nil {
		return nil, err
	}
	return q.QueryContext(ctx, query, args...)
}

// QueryRow runs a query that is expected to return at most one row.
func (c *Connection) QueryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	q, err := c.queryer(ctx)
	if err != nil {
		return nil, err
	}
	return q.QueryRowContext(ctx, query, args...), nil
}

// Exec runs a statement inside the open transaction, if any.
func (c *Connection) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q, err := c.queryer(ctx)
	if err != nil {
		return nil, err
	}
	return q.ExecContext(ctx, query, args...)
}

// Prepare parses query on the session. The statement outlives transactions;
// use it inside one with (*sql.Tx).StmtContext.
func (c *Connection) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	conn, err := c.Handle(ctx)
	if err != nil {
		return nil, err
	}
	return conn.PrepareContext(ctx, query)
}

// Tx returns the open transaction or nil.
func (c *Connection) Tx() *sql.Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx
}

// Begin returns the open transaction, starting one if needed.
func (c *Connection) Begin(ctx context.Context) (*sql.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		return c.tx, nil
	}
	conn, err := c.handleLocked(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %w", dberror.ErrExecution, err)
	}
	c.tx = tx
	return tx, nil
}

// Commit commits the open transaction. Without one it is a no-op.
func (c *Connection) Commit() error {
	c.mu.Lock()
	tx := c.tx
	c.tx = nil
	c.mu.Unlock()
	if tx == nil {
		return nil
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", dberror.ErrExecution, err)
	}
	return nil
}

// Rollback rolls back the open transaction. Without one it is a no-op.
func (c *Connection) Rollback() error {
	c.mu.Lock()
	tx := c.tx
	c.tx = nil
	c.mu.Unlock()
	if tx == nil {
		return nil
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%w: rollback: %w", dberror.ErrExecution, err)
	}
	return nil
}

// ExecTx runs fn inside the connection's transaction and commits it.
// If fn returns an error, the transaction is rolled back.
func (c *Connection) ExecTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := c.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return c.Commit()
}

// Track registers a resource opened on the session, such as a statement
// holding open rows. Close closes tracked resources before the session.
// Nothing is tracked once the connection is closed.
func (c *Connection) Track(r io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.owned == nil {
		c.owned = make(map[io.Closer]struct{})
	}
	c.owned[r] = struct{}{}
}

// Untrack forgets a resource that was closed by its owner.
func (c *Connection) Untrack(r io.Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.owned, r)
}

// Close closes tracked resources, rolls back pending work and releases
// the session. It is safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	owned := c.owned
	c.owned = nil
	tx, conn := c.tx, c.conn
	c.tx, c.conn = nil, nil
	var db *sql.DB
	if c.ownsDB {
		db = c.db
	}
	c.db = nil
	c.mu.Unlock()

	// Rows still open on the session make (*sql.Conn).Close wait, so the
	// resources reading them go first.
	var errs []error
	for r := range owned {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if tx != nil {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.log.WithFields(logrus.Fields{"schema": c.schema, "database": c.database}).Debug("session closed")
	return errors.Join(errs...)
}
