package engine

import (
	"errors"
	"fmt"
)

// FeatureError reports a command the engine cannot run as written: an
// unknown feature for SHOW, DROP or IMPORT, or a missing or reserved
// target name for CREATE.
type FeatureError struct {
	// Command is the command tag, e.g. "drop_cmd".
	Command string

	// Feature is the offending feature or argument.
	Feature string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *FeatureError) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("%s: %s: %s", e.Command, e.Feature, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// PathError reports a file argument that does not exist.
type PathError struct {
	Command string
	Path    string
	Err     error
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %s doesn't exist", e.Command, e.Path)
}

// Unwrap returns the underlying file system error.
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsFeatureError returns true if err is a FeatureError.
// Uses errors.As to handle wrapped errors.
func IsFeatureError(err error) bool {
	var fe *FeatureError
	return errors.As(err, &fe)
}

// IsPathError returns true if err is a PathError.
// Uses errors.As to handle wrapped errors.
func IsPathError(err error) bool {
	var pe *PathError
	return errors.As(err, &pe)
}
