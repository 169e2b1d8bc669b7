// Package apierror maps statement errors to API responses and renders
// error and debug views.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/nnnkkk7/oraquery/pkg/dberror"
)

// Error codes returned by the API.
const (
	// Request errors (000xxx)
	CodeInternalError      = "000001"
	CodeInvalidParameter   = "000002"
	CodePermissionDenied   = "000003"
	CodeConfigurationError = "000004"

	// Statement errors (001xxx)
	CodeParseError          = "001001"
	CodeSQLCompilationError = "001003"
	CodeBindError           = "001004"
	CodeSQLExecutionError   = "001007"
	CodeDryRun              = "001010"
	CodeInvalidFetchShape   = "001011"

	// Object errors (002xxx)
	CodeStatementNotFound = "002003"

	// Connection errors (390xxx)
	CodeAuthenticationFailed = "390100"
	CodeConnectionClosed     = "390114"
)

// SQL states.
const (
	SQLStateSuccess              = "00000"
	SQLStateAuthenticationFailed = "28000"
	SQLStateSyntaxError          = "42000"
	SQLStateDataException        = "22000"
	SQLStateNoData               = "02000"
	SQLStateGeneralError         = "HY000"
)

// GetSQLState returns the SQL state for a given error code
func GetSQLState(code string) string {
	mapping := map[string]string{
		CodeAuthenticationFailed: SQLStateAuthenticationFailed,
		CodeConnectionClosed:     SQLStateAuthenticationFailed,
		CodeParseError:           SQLStateSyntaxError,
		CodeSQLCompilationError:  SQLStateSyntaxError,
		CodeBindError:            SQLStateDataException,
		CodeSQLExecutionError:    SQLStateDataException,
		CodeStatementNotFound:    SQLStateNoData,
	}

	if state, ok := mapping[code]; ok {
		return state
	}
	return SQLStateGeneralError
}

// HTTPStatus returns the response status for a given error code.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidParameter, CodeParseError, CodeSQLCompilationError, CodeBindError,
		CodeDryRun, CodeInvalidFetchShape:
		return http.StatusBadRequest
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeAuthenticationFailed:
		return http.StatusUnauthorized
	case CodeStatementNotFound:
		return http.StatusNotFound
	case CodeSQLExecutionError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the error body returned by every handler.
type APIError struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	SQLState string         `json:"sqlState,omitempty"`
	Data     map[string]any `json:"data,omitempty"`

	err error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the error the APIError was built from.
func (e *APIError) Unwrap() error {
	return e.err
}

// Is matches another APIError by code.
func (e *APIError) Is(target error) bool {
	var apiErr *APIError
	if errors.As(target, &apiErr) {
		return e.Code == apiErr.Code
	}
	return false
}

// Status returns the HTTP status for the error.
func (e *APIError) Status() int {
	return HTTPStatus(e.Code)
}

// WithData adds data to the error.
func (e *APIError) WithData(key string, value any) *APIError {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// ErrorResponse represents the JSON response structure for errors.
type ErrorResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Code     string         `json:"code"`
	SQLState string         `json:"sqlState,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// ToResponse converts the APIError to an ErrorResponse.
func (e *APIError) ToResponse() *ErrorResponse {
	data := make(map[string]any, len(e.Data))
	for k, v := range e.Data {
		data[k] = v
	}
	return &ErrorResponse{
		Success:  false,
		Message:  e.Message,
		Code:     e.Code,
		SQLState: e.SQLState,
		Data:     data,
	}
}

// Write sends the error as JSON with its HTTP status.
func (e *APIError) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status())
	_ = json.NewEncoder(w).Encode(e.ToResponse())
}

// New creates an APIError with the given code and message.
func New(code, message string) *APIError {
	return &APIError{
		Code:     code,
		Message:  message,
		SQLState: GetSQLState(code),
	}
}

// NewInvalidParameterError creates an invalid parameter error.
func NewInvalidParameterError(paramName, reason string) *APIError {
	return New(CodeInvalidParameter, fmt.Sprintf("Invalid parameter '%s': %s", paramName, reason)).
		WithData("paramName", paramName)
}

// NewStatementNotFoundError creates a statement not found error.
func NewStatementNotFoundError(handle string) *APIError {
	return New(CodeStatementNotFound, fmt.Sprintf("Statement not found: '%s'", handle)).
		WithData("handle", handle)
}

// NewPermissionDeniedError creates a permission denied error.
func NewPermissionDeniedError(resource string) *APIError {
	return New(CodePermissionDenied, fmt.Sprintf("Permission denied for resource: %s", resource)).
		WithData("resource", resource)
}

var sentinelCodes = []struct {
	err  error
	code string
}{
	{dberror.ErrConfiguration, CodeConfigurationError},
	{dberror.ErrMissingConfig, CodeConfigurationError},
	{dberror.ErrAuthentication, CodeAuthenticationFailed},
	{dberror.ErrConnectionClosed, CodeConnectionClosed},
	{dberror.ErrParse, CodeParseError},
	{dberror.ErrInvalidSQL, CodeSQLCompilationError},
	{dberror.ErrInvalidBindName, CodeBindError},
	{dberror.ErrBind, CodeBindError},
	{dberror.ErrDryRun, CodeDryRun},
	{dberror.ErrInvalidFetchShape, CodeInvalidFetchShape},
	{dberror.ErrExecution, CodeSQLExecutionError},
	{dberror.ErrStatementNotFound, CodeStatementNotFound},
}

// Code returns the API error code for err.
func Code(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return CodeInternalError
}

// FromError converts err to an APIError. The message is custom, extended
// with the native driver error for privileged callers. If err is already
// an APIError it is returned as-is; nil stays nil.
func FromError(err error, custom string, privileged bool) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	code := Code(err)
	if custom == "" {
		custom = "Statement failed"
		if code == CodeInternalError {
			custom = "Internal error"
		}
	}
	native, _ := dberror.AsNative(err)
	e := New(code, dberror.Message(custom, native, privileged))
	e.err = err
	if privileged {
		e.WithData("originalError", err.Error())
		if native != nil && native.Code != 0 {
			e.WithData("nativeCode", native.Code)
		}
	}
	return e
}
