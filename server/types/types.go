// Package types provides the JSON request and response bodies of the HTTP API.
package types

// StatementSource is the SQL and binds shared by every request that runs SQL.
type StatementSource struct {
	SQL      string         `json:"sql"`
	Binds    map[string]any `json:"binds,omitempty"`
	Schema   string         `json:"schema,omitempty"`
	Database string         `json:"database,omitempty"`
}

// Query API Types

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	StatementSource
	Shape      string `json:"shape,omitempty"` // assoc, num or both
	Commit     *bool  `json:"commit,omitempty"`
	DateFormat string `json:"dateFormat,omitempty"`
}

type QueryResponse struct {
	Success       bool             `json:"success"`
	StatementType string           `json:"statementType"`
	Columns       []ColumnMetadata `json:"columns,omitempty"`
	Rows          []map[string]any `json:"rows"`
	NumRows       int64            `json:"numRows"`
}

type ColumnMetadata struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	DatabaseType string `json:"databaseType,omitempty"`
	Length       int64  `json:"length,omitempty"`
	Precision    int64  `json:"precision,omitempty"`
	Scale        int64  `json:"scale,omitempty"`
	Nullable     bool   `json:"nullable"`
}

// Statement API Types

// StatementRequest is the body of POST /statements.
type StatementRequest struct {
	StatementSource
	PageSize int `json:"pageSize,omitempty"`
}

// StatementResponse describes a managed statement and, for GET, its next
// page of rows.
type StatementResponse struct {
	Success       bool             `json:"success"`
	Handle        string           `json:"statementHandle"`
	Status        string           `json:"status"`
	StatementType string           `json:"statementType,omitempty"`
	Columns       []ColumnMetadata `json:"columns,omitempty"`
	Rows          []map[string]any `json:"rows,omitempty"`
	More          bool             `json:"more"`
	CreatedOn     int64            `json:"createdOn,omitempty"` // Unix milliseconds
	Message       string           `json:"message,omitempty"`
}

// Export API Types

// ExportRequest is the body of POST /export.
type ExportRequest struct {
	StatementSource
	Filename    string `json:"filename"`
	Type        string `json:"type,omitempty"` // txt, csv, psv or tsv
	ShowHeaders *bool  `json:"showHeaders,omitempty"`
}

// DebugRequest is the body of POST /debug.
type DebugRequest struct {
	StatementSource
}
