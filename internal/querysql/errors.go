package querysql

import (
	"errors"
	"fmt"
)

// CompileError reports a filter tree or request the compiler cannot
// translate: a malformed tree, an unknown operator, an invalid identifier
// or a field that cannot be placed in the query.
type CompileError struct {
	Field   string // display form of the offending field, if any
	Message string
	Err     error // underlying validation error, if any
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("compile: field %s: %s", e.Field, e.Message)
	}
	return "compile: " + e.Message
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsCompileError returns true if err is a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

func compileErrorf(field, format string, args ...any) *CompileError {
	return &CompileError{Field: field, Message: fmt.Sprintf(format, args...)}
}
