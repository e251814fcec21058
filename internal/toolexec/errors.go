package toolexec

import (
	"errors"
	"fmt"
	"strings"

	"scrolla/internal/services"
)

// maxStderrBytes bounds the stderr tail kept on an Error.
const maxStderrBytes = 8 << 10

// Error reports a failed or timed out tool invocation.
type Error struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.TimedOut {
		fmt.Fprintf(&b, "%s timed out", e.Tool)
	} else {
		fmt.Fprintf(&b, "%s exited with code %d", e.Tool, e.ExitCode)
	}
	if e.Err != nil && !e.TimedOut {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if tail := lastLine(e.Stderr); tail != "" {
		fmt.Fprintf(&b, ": %s", tail)
	}
	return b.String()
}

// Unwrap exposes the classification marker alongside the underlying cause.
func (e *Error) Unwrap() []error {
	marker := services.ErrExternalTool
	if e.TimedOut {
		marker = services.ErrTimeout
	}
	if e.Err == nil {
		return []error{marker}
	}
	return []error{marker, e.Err}
}

// Diagnostics returns the captured stderr of the first tool failure in err's
// chain, trimmed of surrounding whitespace. It is empty when err carries no
// tool failure or the tool wrote nothing to stderr.
func Diagnostics(err error) string {
	var toolErr *Error
	if !errors.As(err, &toolErr) {
		return ""
	}
	return strings.TrimSpace(toolErr.Stderr)
}

func lastLine(stderr string) string {
	trimmed := strings.TrimSpace(stderr)
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndexByte(trimmed, '\n'); idx >= 0 {
		return strings.TrimSpace(trimmed[idx+1:])
	}
	return trimmed
}

func tail(data []byte) string {
	if len(data) > maxStderrBytes {
		data = data[len(data)-maxStderrBytes:]
	}
	return string(data)
}
