package model

import (
	"errors"
	"fmt"
)

// ExitCode defines the CLI exit codes. Each non-zero code also names a
// failure category, so callers can branch on the kind of error without
// string matching.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfiguration indicates malformed input: a manifest that does
	// not parse, an invalid package id, file path or branch name, or a
	// broken settings file.
	ExitConfiguration ExitCode = 2

	// ExitPrecondition indicates the repository is not in a state the
	// operation can start from: no origin branch can be determined, the
	// "origin" remote is missing, or another run holds the lock.
	ExitPrecondition ExitCode = 3

	// ExitExternalTool indicates git exited with a status outside the
	// documented cases, or a file operation on its behalf failed.
	ExitExternalTool ExitCode = 4
)

// String returns the taxonomy name of the code.
func (c ExitCode) String() string {
	switch c {
	case ExitSuccess:
		return "success"
	case ExitConfiguration:
		return "configuration error"
	case ExitPrecondition:
		return "precondition error"
	case ExitExternalTool:
		return "external tool error"
	default:
		return "error"
	}
}

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// CodeOf returns the exit code carried by the outermost CLIError in err's
// chain, ExitSuccess for a nil error and ExitGeneralError otherwise.
func CodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return ExitGeneralError
}

// IsCode reports whether err carries the given exit code.
func IsCode(err error, code ExitCode) bool {
	return err != nil && CodeOf(err) == code
}
