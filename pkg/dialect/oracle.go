package dialect

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"
	"github.com/sijms/go-ora/v2/network"

	"github.com/nnnkkk7/oraquery/pkg/config"
	"github.com/nnnkkk7/oraquery/pkg/dberror"
)

const defaultOraclePort = 1521

var oraCode = regexp.MustCompile(`ORA-(\d{5})`)

// Oracle uses the pure Go go-ora driver.
type Oracle struct{}

func (Oracle) Name() string { return "oracle" }

func (Oracle) DriverName() string { return "oracle" }

func (Oracle) RequiresCredentials() bool { return true }

// DSN accepts either host[:port]/service or a TNS descriptor starting with "(".
func (Oracle) DSN(c Credentials) (string, error) {
	desc := strings.TrimSpace(c.Descriptor)
	if strings.HasPrefix(desc, "(") {
		return go_ora.BuildJDBC(c.Schema, c.Password, desc, nil), nil
	}

	hostPort, service, _ := strings.Cut(desc, "/")
	host, portText, err := net.SplitHostPort(hostPort)
	if err != nil {
		host, portText = hostPort, strconv.Itoa(defaultOraclePort)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return "", fmt.Errorf("%w: invalid port in descriptor %q", dberror.ErrConfiguration, desc)
	}
	if host == "" || service == "" {
		return "", fmt.Errorf("%w: descriptor %q needs host and service", dberror.ErrConfiguration, desc)
	}
	return go_ora.BuildUrl(host, port, service, c.Schema, c.Password, nil), nil
}

func (Oracle) SessionSetup() string {
	return "alter session set nls_date_format='" + config.CanonicalDateFormat + "'"
}

func (Oracle) Named() bool { return true }

func (Oracle) Rebind(sql string) (string, []string) { return sql, nil }

func (Oracle) Arg(name string, value any) any {
	return sql.Named(strings.TrimPrefix(name, ":"), value)
}

func (Oracle) OutArg(name string, dest *string, size int) any {
	return sql.Named(strings.TrimPrefix(name, ":"), go_ora.Out{Dest: dest, Size: size})
}

func (Oracle) StatementRollback() bool { return true }

func (Oracle) ExplainSQL(statementID, sqlText string) (string, string) {
	prepare := fmt.Sprintf("EXPLAIN PLAN SET STATEMENT_ID = '%s' FOR %s", statementID, sqlText)
	query := fmt.Sprintf("SELECT plan_table_output FROM TABLE(DBMS_XPLAN.DISPLAY('PLAN_TABLE', '%s'))", statementID)
	return prepare, query
}

func (Oracle) SequenceValueSQL(sequence string) (string, error) {
	if err := checkSequence(sequence); err != nil {
		return "", err
	}
	return "select " + sequence + ".currval cv from dual", nil
}

func (Oracle) NativeError(err error) *dberror.NativeError {
	if err == nil {
		return nil
	}
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return &dberror.NativeError{Code: oraErr.ErrCode, Message: oraErr.ErrMsg, Err: err}
	}
	ne := genericNativeError(err)
	if m := oraCode.FindStringSubmatch(ne.Message); m != nil {
		ne.Code, _ = strconv.Atoi(m[1])
	}
	return ne
}
