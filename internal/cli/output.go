package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // validation failed or the server rejected a request
	ExitCommandError = 2 // bad arguments, unreadable files
)

// ExitError carries the process exit code of a failed command. Its message
// has already been shown to the user.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// GetExitCode extracts the exit code from an error.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // notifications, so JSON output stays parseable
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

type CLIError struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success writes data as JSON, or calls text for human-readable output.
func (f *OutputFormatter) Success(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Fail reports err and returns it as an ExitError. A nil text prints
// nothing in text mode, for errors already shown by a notifier.
func (f *OutputFormatter) Fail(code int, err error, details interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		if encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Message: err.Error(), Details: details},
		}); encErr != nil {
			return encErr
		}
	} else if text != nil {
		text(f.Writer)
	}
	return &ExitError{Code: code, Message: err.Error()}
}

// notifier prints save feedback.
type notifier struct {
	w io.Writer
}

func (n notifier) Success(msg string)   { fmt.Fprintf(n.w, "✓ %s\n", msg) }
func (n notifier) Failure(err error)    { fmt.Fprintf(n.w, "✗ %v\n", err) }
func (n notifier) Background(err error) { fmt.Fprintf(n.w, "! autosave: %v\n", err) }
