// Package dialect describes the per-RDBMS conventions a connection needs:
// driver name and DSN, session setup, bind placeholder style, explain plans,
// sequence lookups and native error extraction.
package dialect

import (
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
	"github.com/nnnkkk7/oraquery/pkg/sqltext"
)

// Credentials identifies a session.
type Credentials struct {
	Schema     string
	Database   string
	Password   string
	Descriptor string
}

// Dialect is implemented by every supported database.
type Dialect interface {
	// Name is the configuration name, e.g. "oracle".
	Name() string
	// DriverName is the database/sql driver name.
	DriverName() string
	// RequiresCredentials reports whether a password and descriptor are
	// needed to open a session.
	RequiresCredentials() bool
	DSN(c Credentials) (string, error)
	// SessionSetup is executed once per session to force the canonical
	// date format.
	SessionSetup() string
	// Named reports whether the driver binds :name markers by name. When
	// false, Rebind rewrites markers to positional placeholders.
	Named() bool
	Rebind(sql string) (string, []string)
	Arg(name string, value any) any
	OutArg(name string, dest *string, size int) any
	// ExplainSQL returns an optional statement that stores the plan and the
	// query that renders it.
	ExplainSQL(statementID, sql string) (prepare, query string)
	SequenceValueSQL(sequence string) (string, error)
	NativeError(err error) *dberror.NativeError
	// StatementRollback reports whether a failed statement is undone on
	// its own, leaving the enclosing transaction usable.
	StatementRollback() bool
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Dialect{}
)

// Register makes d available to Lookup under d.Name().
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(d.Name())] = d
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown driver %q", dberror.ErrConfiguration, name)
	}
	return d, nil
}

// Names lists the registered dialects.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(Oracle{})
	Register(DuckDB{})
	Register(Snowflake{})
}

var sequenceName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*(\.[A-Za-z_][A-Za-z0-9_$#]*)?$`)

func checkSequence(sequence string) error {
	if !sequenceName.MatchString(sequence) {
		return fmt.Errorf("%w: invalid sequence name %q", dberror.ErrInvalidSQL, sequence)
	}
	return nil
}

// positional is embedded by dialects whose drivers only understand "?".
type positional struct{}

func (positional) Named() bool { return false }

func (positional) Rebind(sql string) (string, []string) {
	return sqltext.Positional(sql)
}

func (positional) Arg(_ string, value any) any { return value }

func (positional) OutArg(_ string, dest *string, _ int) any {
	return sql.Out{Dest: dest}
}

func genericNativeError(err error) *dberror.NativeError {
	return &dberror.NativeError{Message: err.Error(), Err: err}
}
