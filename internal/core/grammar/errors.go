package grammar

import (
	"errors"
	"fmt"
)

// ErrUnsupported is matched by every UnsupportedError.
var ErrUnsupported = errors.New("unsupported by dialect")

// CompileError reports malformed input for a table.
type CompileError struct {
	Table  string
	Reason string
	Err    error
}

func (e *CompileError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Table == "" {
		return "compile: " + msg
	}
	return fmt.Sprintf("compile %s: %s", e.Table, msg)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// UnsupportedError reports a feature the dialect cannot express.
type UnsupportedError struct {
	Dialect string
	Feature string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s is not supported", e.Dialect, e.Feature)
}

// Is makes UnsupportedError match ErrUnsupported.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

func compileErr(table, format string, args ...any) *CompileError {
	return &CompileError{Table: table, Reason: fmt.Sprintf(format, args...)}
}
