package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"layoutpub/pkg/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // validation failed or the publication lock was taken
	ExitCommandError = 2 // bad flags, config or storage errors
)

// ExitError carries the process exit code of a failed command. The message
// has already been written by the formatter.
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

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode extracts the exit code from an error, ExitFailure by default.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// Response is the JSON envelope of every command.
type Response struct {
	Status string         `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data. In text mode render draws it.
func (f *OutputFormatter) Success(data any, render func(io.Writer)) error {
	if f.Format == "json" {
		return f.encode(Response{Status: "ok", Data: data})
	}
	render(f.Writer)
	return nil
}

// Fail writes err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(message string, err error) error {
	code := domain.CodeOf(err)
	var details any
	var failed *domain.ValidationFailedError
	if errors.As(err, &failed) {
		details = failed.Result
	}
	if f.Format == "json" {
		_ = f.encode(Response{Status: "error", Error: &ResponseError{Code: string(code), Message: err.Error(), Details: details}})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s: %v\n", code, message, err)
		if failed != nil {
			renderIssues(f.Writer, failed.Result)
		}
	}
	return &ExitError{Code: exitCodeOf(code), Message: message, Err: err}
}

// VerboseLog writes a diagnostic line when --verbose is set. It never goes to
// the JSON stream.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) encode(r Response) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func exitCodeOf(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidationFailed, domain.CodeLockUnavailable, domain.CodePreconditionFailed:
		return ExitFailure
	}
	return ExitCommandError
}
