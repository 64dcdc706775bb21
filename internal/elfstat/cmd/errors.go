package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// UsageError indicates the command line was wrong and no analysis was attempted.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, a ...any) error {
	return &UsageError{Err: fmt.Errorf(format, a...)}
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitFailure
}

// exactlyOneFile validates positional arguments before any file is touched.
func exactlyOneFile(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageErrorf("filename is required: expected exactly 1 file argument, received %d", len(args))
	}
	return nil
}

func flagUsageError(cmd *cobra.Command, err error) error {
	return &UsageError{Err: err}
}
