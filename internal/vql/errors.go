package vql

import (
	"errors"
	"fmt"
)

// ParseError reports malformed VQL.
type ParseError struct {
	Pos     int // byte offset into the script
	Line    int // 1-based
	Column  int // 1-based
	Message string
}

func newParseError(pos, line, col int, format string, args ...any) *ParseError {
	return &ParseError{Pos: pos, Line: line, Column: col, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line == 0 {
		return "vql: " + e.Message
	}
	return fmt.Sprintf("vql: line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// IsParseError returns true if err is a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
