package cli

import (
	"context"
	"errors"

	"github.com/specialistvlad/dagwatch/internal/condor"
	"github.com/specialistvlad/dagwatch/internal/config"
	"github.com/specialistvlad/dagwatch/internal/node"
	"github.com/specialistvlad/dagwatch/internal/scheduler"
	"github.com/specialistvlad/dagwatch/internal/terminal"
	"github.com/specialistvlad/dagwatch/internal/watch"
)

// Process exit codes. Workflow failures use 1..terminal.MaxWorkflowExitCode.
const (
	ExitOK          = 0
	ExitUsage       = 64
	ExitDataErr     = 65
	ExitNoInput     = 66
	ExitUnavailable = 69
	ExitSoftware    = 70
	ExitConfig      = 78
	ExitInterrupted = 130
)

// ExitError is a custom error type that includes a specific exit code.
// An empty Message means nothing needs to be printed.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error()}
}

// ExitCodeFor maps an error returned by Run to the process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}

	var exitErr *ExitError
	var aborted *watch.AbortedError
	var monitoring *watch.MonitoringError
	var cfgErr *config.Error
	var classErr *node.ClassificationError

	switch {
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &aborted):
		return aborted.ExitCode
	case errors.As(err, &monitoring):
		return ExitUnavailable
	case errors.As(err, &cfgErr), errors.Is(err, terminal.ErrNoNodes):
		return ExitConfig
	case errors.Is(err, condor.ErrToolMissing):
		return ExitUnavailable
	case errors.Is(err, scheduler.ErrNotFound):
		return ExitNoInput
	case errors.Is(err, scheduler.ErrMalformedResponse), errors.As(err, &classErr):
		return ExitDataErr
	default:
		return ExitSoftware
	}
}

// Message returns the line to print on stderr for err, or "" when the
// error needs none.
func Message(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Message
	}
	return "dagwatch: " + err.Error()
}
