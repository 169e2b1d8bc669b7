package querylog

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/nnnkkk7/oraquery/pkg/connection"
	"github.com/nnnkkk7/oraquery/pkg/dberror"
)

// DefaultTable is the log table used when none is configured.
const DefaultTable = "web_query_log"

// DefaultTimeout bounds a single log insert.
const DefaultTimeout = 5 * time.Second

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*(\.[A-Za-z_][A-Za-z0-9_$#]*)?$`)

// logColumns are the bind markers of the insert, in column order.
var logColumns = []string{":start_time", ":sql_text", ":bind_vars", ":ip"}

// Table inserts one row per execution into a log table with the columns
// start_time, sql_text, bind_vars and ip. It should get a connection of
// its own so that log rows never join a statement's transaction.
type Table struct {
	conn    *connection.Connection
	insert  string
	markers []string

	// IP is stored with every row; empty stores NULL.
	IP      string
	Timeout time.Duration

	mu sync.Mutex
}

// NewTable creates a sink writing to table on conn. An empty table name
// selects DefaultTable.
func NewTable(conn *connection.Connection, table string) (*Table, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid log table %q", dberror.ErrConfiguration, table)
	}
	insert := "insert into " + table + " (start_time, sql_text, bind_vars, ip) values (:start_time, :sql_text, :bind_vars, :ip)"
	rendered, markers := conn.Dialect().Rebind(insert)
	return &Table{conn: conn, insert: rendered, markers: markers, Timeout: DefaultTimeout}, nil
}

// Log implements Logger.
func (t *Table) Log(start time.Time, sql, binds string) error {
	var ip any
	if t.IP != "" {
		ip = t.IP
	}
	values := map[string]any{
		":start_time": start,
		":sql_text":   sql,
		":bind_vars":  binds,
		":ip":         ip,
	}

	d := t.conn.Dialect()
	names := t.markers
	if d.Named() {
		names = logColumns
	}
	args := make([]any, len(names))
	for i, name := range names {
		args[i] = d.Arg(name, values[name])
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := t.conn.Exec(ctx, t.insert, args...); err != nil {
		return fmt.Errorf("query log: %w", err)
	}
	return nil
}

// Close closes the sink's connection.
func (t *Table) Close() error {
	return t.conn.Close()
}
