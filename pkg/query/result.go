package query

import (
	"database/sql"
	"time"
)

// Commit modes for Execute.
const (
	Commit   = true
	NoCommit = false
)

// Bind is one named bind value.
type Bind struct {
	Name  string
	Value any
}

// ColumnMetadata describes one projected column.
type ColumnMetadata struct {
	Name         string // upper-cased
	Type         string // canonical type, see TypeMapper
	DatabaseType string // as reported by the driver
	Nullable     bool
	Length       int64
	Precision    int64
	Scale        int64
}

// FetchMode holds the flags every fetch is made with.
type FetchMode struct {
	// ReturnNulls makes every declared column present in each row.
	ReturnNulls bool
	// InlineLOBs reads LOB content instead of locators.
	InlineLOBs bool
}

// ExecutionState is the memoized outcome of a statement execution.
type ExecutionState struct {
	Err      error
	Rows     *sql.Rows
	Result   sql.Result
	Commit   bool
	Started  time.Time
	Duration time.Duration
}

func (s *ExecutionState) close() {
	if s != nil && s.Rows != nil {
		_ = s.Rows.Close()
	}
}
