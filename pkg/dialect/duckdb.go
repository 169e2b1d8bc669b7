package dialect

import (
	"errors"
	"strings"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/sqltext"
)

// DuckDB is the embedded engine. An empty descriptor opens an in-memory
// database; otherwise the descriptor is a database file path.
type DuckDB struct {
	positional
}

func (DuckDB) Name() string { return "duckdb" }

func (DuckDB) DriverName() string { return "duckdb" }

func (DuckDB) RequiresCredentials() bool { return false }

func (DuckDB) DSN(c Credentials) (string, error) {
	return strings.TrimSpace(c.Descriptor), nil
}

// SessionSetup pins the NULL ordering to the Oracle default. DuckDB dates
// are returned as time.Time, so no date format is needed.
func (DuckDB) SessionSetup() string {
	return "SET default_null_order = 'nulls_last'"
}

// StatementRollback is false: a failed statement aborts the whole
// transaction.
func (DuckDB) StatementRollback() bool { return false }

func (DuckDB) ExplainSQL(_, sqlText string) (string, string) {
	return "", "EXPLAIN " + sqltext.Nulled(sqlText)
}

func (DuckDB) SequenceValueSQL(sequence string) (string, error) {
	if err := checkSequence(sequence); err != nil {
		return "", err
	}
	return "select currval('" + sequence + "') as cv", nil
}

func (DuckDB) NativeError(err error) *dberror.NativeError {
	if err == nil {
		return nil
	}
	var duckErr *duckdb.Error
	if errors.As(err, &duckErr) {
		return &dberror.NativeError{Code: int(duckErr.Type), Message: duckErr.Msg, Err: err}
	}
	return genericNativeError(err)
}
