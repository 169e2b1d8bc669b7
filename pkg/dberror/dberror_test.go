package dberror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nnnkkk7/oraquery/pkg/config"
)

func TestNativeError(t *testing.T) {
	driverErr := errors.New("ORA-01843: not a valid month")
	ne := &NativeError{Code: 1843, Message: "not a valid month", Err: driverErr}

	if got := ne.Error(); got != "[1843] not a valid month" {
		t.Errorf("Unexpected Error(): %s", got)
	}
	if !errors.Is(ne, driverErr) {
		t.Error("Expected NativeError to unwrap to the driver error")
	}
	if ne.Hint() != "Did you try to insert a string in a date field?" {
		t.Errorf("Unexpected hint: %s", ne.Hint())
	}

	noCode := &NativeError{Message: "boom"}
	if noCode.Error() != "boom" {
		t.Errorf("Unexpected Error() without code: %s", noCode.Error())
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{1843, "Did you try to insert a string in a date field?"},
		{1036, "Did one of the bind variables not receive a value?"},
		{942, ""},
	}
	for _, tt := range tests {
		if got := Hint(tt.code); got != tt.want {
			t.Errorf("Hint(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}

	var nilErr *NativeError
	if nilErr.Hint() != "" {
		t.Error("Expected empty hint on nil NativeError")
	}
}

func TestAsNative(t *testing.T) {
	ne := &NativeError{Code: 942, Message: "table or view does not exist"}
	wrapped := fmt.Errorf("%w: %w", ErrExecution, ne)

	got, ok := AsNative(wrapped)
	if !ok || got.Code != 942 {
		t.Errorf("AsNative() = %v, %v", got, ok)
	}
	if !errors.Is(wrapped, ErrExecution) {
		t.Error("Expected wrapped error to match ErrExecution")
	}

	if _, ok := AsNative(errors.New("plain")); ok {
		t.Error("Expected no native error in plain error")
	}
}

func TestErrMissingConfigAlias(t *testing.T) {
	if !errors.Is(fmt.Errorf("wrap: %w", config.ErrMissingConfig), ErrMissingConfig) {
		t.Error("Expected ErrMissingConfig to alias the config sentinel")
	}
}

func TestMessage(t *testing.T) {
	native := &NativeError{Code: 1036, Message: "illegal variable name/number"}

	tests := []struct {
		name       string
		native     *NativeError
		privileged bool
		want       string
	}{
		{"unprivileged", native, false, "Could not save"},
		{"privileged", native, true, "Could not save\n[1036] illegal variable name/number\nDid one of the bind variables not receive a value?"},
		{"privileged without native error", nil, true, "Could not save"},
		{"privileged without hint", &NativeError{Code: 942, Message: "table or view does not exist"}, true, "Could not save\n[942] table or view does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message("Could not save", tt.native, tt.privileged); got != tt.want {
				t.Errorf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}
