// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package nperrors provides structured error handling for the Nosey Parker CLI.
//
// This package defines UserError, a type that carries structured error information
// including what went wrong, why it happened, and how to fix it. It also defines
// consistent exit codes for different error categories.
//
// # Usage Example
//
// Creating and displaying errors:
//
//	err := nperrors.NewConfigError(
//	    "Cannot open the datastore",
//	    "The datastore directory is locked by another process",
//	    "Close other noseyparker instances or wait for the other scan to finish",
//	    underlyingErr,
//	)
//	if err != nil {
//	    nperrors.FatalError(err, false)
//	}
//
// # Formatted Output
//
// The Format() method provides colored terminal output:
//
//	fmt.Fprint(os.Stderr, err.Format(false))
//	// Output (with colors):
//	// Error: Cannot open the datastore
//	// Cause: The datastore directory is locked by another process
//	// Fix:   Close other noseyparker instances or wait for the other scan to finish
//
// For JSON output:
//
//	jsonData := err.ToJSON()
//	json.NewEncoder(os.Stderr).Encode(jsonData)
//
// # Exit Codes
//
// The package defines semantic exit codes following Unix conventions:
//   - ExitSuccess (0): Successful execution
//   - ExitConfig (1): Configuration errors (missing/invalid config, bad CLI args)
//   - ExitRuleLoad (2): Rule/ruleset loading or validation errors
//   - ExitCompile (3): Automaton compilation errors (pattern rejected by both engines)
//   - ExitIo (4): Filesystem I/O errors
//   - ExitNetwork (5): Network/API errors (connection failed, timeout)
//   - ExitGit (6): Git subprocess or repository errors
//   - ExitDatastore (7): Datastore errors (locked, corrupted, schema mismatch)
//   - ExitCancelled (130): Scan cancelled by signal (SIGINT), by Unix convention 128+SIGINT
//   - ExitInternal (10): Internal errors (bugs, panics)
package nperrors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Kind classifies the category of a UserError, per the error kinds a scan run
// or CLI invocation can fail with.
type Kind string

// Error kinds recognized by the CLI.
const (
	KindConfig    Kind = "config"
	KindRuleLoad  Kind = "rule_load"
	KindCompile   Kind = "compile"
	KindIo        Kind = "io"
	KindNetwork   Kind = "network"
	KindGit       Kind = "git"
	KindDatastore Kind = "datastore"
	KindCancelled Kind = "cancelled"
	KindInternal  Kind = "internal"
)

// Exit codes for different error categories.
const (
	// ExitSuccess indicates successful execution.
	ExitSuccess = 0

	// ExitConfig indicates configuration errors (missing/invalid config, bad flags).
	ExitConfig = 1

	// ExitRuleLoad indicates a rule or ruleset failed to load or validate.
	ExitRuleLoad = 2

	// ExitCompile indicates a rule's pattern could not be compiled by either
	// matching engine.
	ExitCompile = 3

	// ExitIo indicates a filesystem I/O error (unreadable file, permission denied).
	ExitIo = 4

	// ExitNetwork indicates a network or API error (connection failed, timeout).
	ExitNetwork = 5

	// ExitGit indicates a git subprocess or repository error.
	ExitGit = 6

	// ExitDatastore indicates a datastore error (locked, corrupted, schema mismatch).
	ExitDatastore = 7

	// ExitInternal indicates internal errors (bugs, unexpected panics).
	// Exit code 10 signals "this is a bug that should be reported".
	ExitInternal = 10

	// ExitCancelled indicates the scan was interrupted by SIGINT.
	// 130 follows the Unix convention of 128+signal number (SIGINT = 2).
	ExitCancelled = 130
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: What went wrong (user-facing error description)
//   - Cause: Why it happened (diagnostic information)
//   - Fix: How to fix it (actionable suggestion)
//
// UserError also carries a Kind and exit code for consistent CLI exit
// behavior and optionally wraps an underlying error for error chain
// compatibility.
type UserError struct {
	// Kind classifies the error category.
	Kind Kind

	// Message describes what went wrong in user-friendly language.
	Message string

	// Cause explains why the error occurred (diagnostic information).
	Cause string

	// Fix provides an actionable suggestion on how to resolve the error.
	Fix string

	// ExitCode is the exit code that should be used when exiting due to this error.
	ExitCode int

	// Err is the underlying error that caused this error (optional).
	// This enables error wrapping and compatibility with errors.Is/As.
	Err error
}

// Error implements the error interface.
//
// It returns a simple error message string. If an underlying error is present,
// it appends that error's message for context.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for compatibility with errors.Is and errors.As.
//
// It returns the underlying error, allowing standard library error inspection
// functions to work with error chains.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error with exit code ExitConfig.
//
// Use this for errors related to missing, invalid, or malformed configuration,
// including bad CLI flag combinations.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Kind:     KindConfig,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitConfig,
		Err:      err,
	}
}

// NewRuleLoadError creates a rule-loading error with exit code ExitRuleLoad.
//
// Use this when a rule file fails to parse, a ruleset references a missing
// rule, or a rule's examples fail validation.
func NewRuleLoadError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Kind:     KindRuleLoad,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitRuleLoad,
		Err:      err,
	}
}

// NewCompileError creates an automaton compilation error with exit code
// ExitCompile.
//
// Use this when a rule's pattern is rejected by both the block matcher and
// the capture extractor.
func NewCompileError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Kind:     KindCompile,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitCompile,
		Err:      err,
	}
}

// NewIoError creates a filesystem I/O error with exit code ExitIo.
//
// Use this for errors reading or writing files, such as permission denied
// or disk-full conditions encountered while enumerating or scanning inputs.
func NewIoError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Kind:     KindIo,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitIo,
		Err:      err,
	}
}

// NewNetworkError creates a network error with exit code ExitNetwork.
//
// Use this for errors related to network connectivity, API calls, or remote
// operations (e.g. talking to the GitHub REST API or cloning over https).
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Kind:     KindNetwork,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitNetwork,
		Err:      err,
	}
}

// NewGitError creates a git subprocess/repository error with exit code ExitGit.
//
// Use this when the git binary is missing, a clone fails, or a repository
// cannot be opened or enumerated.
func NewGitError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Kind:     KindGit,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitGit,
		Err:      err,
	}
}

// NewDatastoreError creates a datastore error with exit code ExitDatastore.
//
// Use this for errors related to opening, migrating, or writing to the
// on-disk datastore, such as locked files, corruption, or failed transactions.
func NewDatastoreError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Kind:     KindDatastore,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitDatastore,
		Err:      err,
	}
}

// NewCancelledError creates a cancellation error with exit code ExitCancelled.
//
// Use this when a scan is interrupted by SIGINT before completing normally.
func NewCancelledError(msg string) *UserError {
	return &UserError{
		Kind:     KindCancelled,
		Message:  msg,
		ExitCode: ExitCancelled,
	}
}

// NewInternalError creates an internal error with exit code ExitInternal.
//
// Use this for unexpected errors that indicate bugs in the program, such as
// assertion failures, unexpected nil values, or unhandled error cases.
// Internal errors should be reported to the maintainers.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{
		Kind:     KindInternal,
		Message:  msg,
		Cause:    cause,
		Fix:      fix,
		ExitCode: ExitInternal,
		Err:      err,
	}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// The output includes colored sections for Error (red/bold), Cause (yellow),
// and Fix (green). Color output respects the NO_COLOR environment variable
// and can be explicitly disabled with the noColor parameter.
//
// Example output:
//
//	Error: Cannot open the datastore
//	Cause: The datastore directory is locked by another process
//	Fix:   Close other noseyparker instances or wait for the other scan to finish
//
// Empty Cause or Fix fields are omitted from the output.
//
// Note: This method temporarily modifies the global color.NoColor state
// and restores it after formatting to ensure thread safety.
func (e *UserError) Format(noColor bool) string {
	// Save and restore global color state to avoid side effects
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format.
//
// This structure is suitable for machine consumption and integrates with
// CLI commands that support --json output mode.
type ErrorJSON struct {
	Kind     Kind   `json:"kind,omitempty"`
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
//
// Fields with empty values (Cause, Fix) are omitted from JSON output
// using the omitempty tag. This keeps JSON output clean when additional
// context is not available.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Kind:     e.Kind,
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with the appropriate code.
//
// If the error is a UserError, it uses Format() for colored output or
// ToJSON() for JSON mode. For non-UserError types, it prints a simple
// error message and exits with ExitInternal.
//
// This function never returns - it always calls os.Exit().
//
// Usage:
//
//	if err := doSomething(); err != nil {
//	    nperrors.FatalError(err, jsonMode)
//	}
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			// Encode error is intentionally ignored since we're about to exit.
			// If JSON encoding fails, the program will still exit with the correct code.
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	// Fallback for non-UserError
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
