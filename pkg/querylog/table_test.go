package querylog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/connection"
	"github.com/nnnkkk7/oraquery/pkg/dberror"
)

func setupLogConnection(t *testing.T) *connection.Connection {
	t.Helper()

	cfg := config.New()
	cfg.Driver = "duckdb"
	cfg.DefaultSchema = "MAIN"
	cfg.DefaultDatabase = "MEMORY"
	conn, err := connection.New(cfg, "", "")
	if err != nil {
		t.Fatalf("failed to create connection: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if _, err := conn.Exec(context.Background(), "CREATE TABLE web_query_log (start_time TIMESTAMP, sql_text VARCHAR, bind_vars VARCHAR, ip VARCHAR)"); err != nil {
		t.Fatalf("failed to create log table: %v", err)
	}
	return conn
}

func TestTable_Log(t *testing.T) {
	conn := setupLogConnection(t)
	sink, err := NewTable(conn, "")
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}

	start := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	if err := sink.Log(start, "select * from dual", ":one => 1\n:test => 'test'"); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	sink.IP = "10.0.0.1"
	if err := sink.Log(start.Add(time.Minute), "select 2 from dual", ""); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	rows, err := conn.Query(context.Background(), "SELECT sql_text, bind_vars, coalesce(ip, 'NULL') FROM web_query_log ORDER BY start_time")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	defer rows.Close()
	var got [][]string
	for rows.Next() {
		var sqlText, binds, ip string
		if err := rows.Scan(&sqlText, &binds, &ip); err != nil {
			t.Fatalf("Scan() error = %v", err)
		}
		got = append(got, []string{sqlText, binds, ip})
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows error = %v", err)
	}

	want := [][]string{
		{"select * from dual", ":one => 1\n:test => 'test'", "NULL"},
		{"select 2 from dual", "", "10.0.0.1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("log rows mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Errors(t *testing.T) {
	conn := setupLogConnection(t)

	if _, err := NewTable(conn, "web_query_log; drop table x"); !errors.Is(err, dberror.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for an invalid table name, got %v", err)
	}

	sink, err := NewTable(conn, "missing_log")
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	if err := sink.Log(time.Now(), "select 1", ""); err == nil {
		t.Error("Expected an error for a missing log table")
	}
}
