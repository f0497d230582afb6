// Package model defines the domain types and value objects for the
// docpkg CLI.
//
// This package contains pure data structures with no external dependencies.
// None of these values carry repository state: branch names, commit ids and
// tree names are opaque strings handed out by git and passed back to it.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
// The codes double as the error taxonomy: configuration, precondition and
// external tool failures.
package model
