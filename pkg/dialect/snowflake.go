package dialect

import (
	"errors"
	"fmt"

	"github.com/snowflakedb/gosnowflake"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/sqltext"
)

// Snowflake uses gosnowflake. The descriptor is the account identifier and
// the schema doubles as the login user.
type Snowflake struct {
	positional
}

func (Snowflake) Name() string { return "snowflake" }

func (Snowflake) DriverName() string { return "snowflake" }

func (Snowflake) RequiresCredentials() bool { return true }

func (Snowflake) DSN(c Credentials) (string, error) {
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:  c.Descriptor,
		User:     c.Schema,
		Password: c.Password,
		Database: c.Database,
		Schema:   c.Schema,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", dberror.ErrConfiguration, err)
	}
	return dsn, nil
}

func (Snowflake) SessionSetup() string {
	return "ALTER SESSION SET DATE_OUTPUT_FORMAT = 'DD-MON-YYYY' TIMESTAMP_OUTPUT_FORMAT = 'DD-MON-YYYY HH24:MI:SS'"
}

func (Snowflake) StatementRollback() bool { return true }

func (Snowflake) ExplainSQL(_, sqlText string) (string, string) {
	return "", "EXPLAIN USING TEXT " + sqltext.Nulled(sqlText)
}

func (Snowflake) SequenceValueSQL(sequence string) (string, error) {
	return "", fmt.Errorf("%w: snowflake sequences have no current value (%s)", dberror.ErrExecution, sequence)
}

func (Snowflake) NativeError(err error) *dberror.NativeError {
	if err == nil {
		return nil
	}
	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) {
		return &dberror.NativeError{Code: sfErr.Number, Message: sfErr.Message, Err: err}
	}
	return genericNativeError(err)
}
