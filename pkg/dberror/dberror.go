// Package dberror defines the error taxonomy shared by connections and statements.
package dberror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nnnkkk7/oraquery/pkg/config"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrAuthentication    = errors.New("authentication error")
	ErrParse             = errors.New("parse error")
	ErrInvalidSQL        = errors.New("invalid sql")
	ErrInvalidBindName   = errors.New("invalid bind name")
	ErrBind              = errors.New("bind error")
	ErrExecution         = errors.New("execution error")
	ErrDryRun            = errors.New("not supported in dry-run mode")
	ErrInvalidFetchShape = errors.New("invalid fetch shape")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrNoInsertID        = errors.New("no insert id")
	ErrStatementNotFound = errors.New("statement not found")

	// ErrMissingConfig is the configuration provider's error.
	ErrMissingConfig = config.ErrMissingConfig
)

// Known native error codes.
const (
	CodeNotValidMonth       = 1843
	CodeIllegalVariableName = 1036
)

var hints = map[int]string{
	CodeNotValidMonth:       "Did you try to insert a string in a date field?",
	CodeIllegalVariableName: "Did one of the bind variables not receive a value?",
}

// NativeError describes a failure reported by the database driver.
type NativeError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *NativeError) Error() string {
	if e.Code == 0 {
		return e.Message
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the driver error.
func (e *NativeError) Unwrap() error {
	return e.Err
}

// Hint returns a human hint for well-known error codes.
func (e *NativeError) Hint() string {
	if e == nil {
		return ""
	}
	return Hint(e.Code)
}

// Hint returns a human hint for code, or "" when the code is not known.
func Hint(code int) string {
	return hints[code]
}

// AsNative extracts the NativeError from err's chain.
func AsNative(err error) (*NativeError, bool) {
	var ne *NativeError
	if errors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// Message builds the text shown to a user. Privileged users also see the
// native message and its hint.
func Message(custom string, native *NativeError, privileged bool) string {
	if !privileged || native == nil {
		return custom
	}
	parts := []string{custom, native.Error()}
	if hint := native.Hint(); hint != "" {
		parts = append(parts, hint)
	}
	return strings.Join(parts, "\n")
}
