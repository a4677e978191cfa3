// Package channel provides command channels to Eltex switches.
//
// A Channel runs one CLI command at a time and returns the full output with
// paging disabled, the echoed command removed and the trailing prompt
// stripped. SSH talks to a live device over an interactive PTY shell;
// Replay answers from captured output for offline parsing and tests.
package channel

import (
	"context"
	"errors"
)

var (
	// ErrTimeout is returned when the prompt does not come back in time.
	// The channel cannot be reused afterwards.
	ErrTimeout = errors.New("timed out waiting for prompt")
	// ErrClosed is returned once the session has ended
	ErrClosed = errors.New("channel closed")
)

// Channel executes CLI commands on a device
type Channel interface {
	Execute(ctx context.Context, command string) (string, error)
	Close() error
}
