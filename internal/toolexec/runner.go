package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"scrolla/internal/logging"
)

// Executor abstracts process execution so tests can substitute a fake.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second
	return cmd.Run()
}

// Result captures the output of a successful invocation.
type Result struct {
	Stdout  []byte
	Stderr  []byte
	Elapsed time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor overrides the process executor.
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithLogger sets the logger used for command tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner executes validated commands.
type Runner struct {
	exec   Executor
	logger *slog.Logger
}

// NewRunner constructs a Runner backed by os/exec.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{exec: commandExecutor{}, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run validates cmd, executes it under its timeout and waits for the process
// to exit. Failures are returned as *Error; cancellation of ctx itself is
// returned as the context error.
func (r *Runner) Run(ctx context.Context, cmd Command) (Result, error) {
	if err := cmd.Validate(); err != nil {
		return Result{}, err
	}

	runCtx := ctx
	cancel := func() {}
	if cmd.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
	}
	defer cancel()

	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("tool starting",
		logging.String("tool", cmd.label()),
		logging.String("command", cmd.String()),
		logging.Duration("timeout", cmd.Timeout),
	)

	var stdout, stderr bytes.Buffer
	started := time.Now()
	err := r.exec.Run(runCtx, cmd.Binary, cmd.Args, &stdout, &stderr)
	elapsed := time.Since(started)

	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Elapsed: elapsed}
	if err == nil {
		logger.Debug("tool finished",
			logging.String("tool", cmd.label()),
			logging.Duration("elapsed", elapsed),
		)
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s: %w", cmd.label(), ctxErr)
	}

	toolErr := &Error{
		Tool:     cmd.label(),
		Args:     append([]string(nil), cmd.Args...),
		ExitCode: -1,
		Stderr:   tail(stderr.Bytes()),
		Err:      err,
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		toolErr.TimedOut = true
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		toolErr.ExitCode = coded.ExitCode()
	}
	logger.Debug("tool failed",
		logging.String("tool", cmd.label()),
		logging.Int("exit_code", toolErr.ExitCode),
		logging.Bool("timed_out", toolErr.TimedOut),
		logging.Duration("elapsed", elapsed),
		logging.String("stderr", strings.TrimSpace(toolErr.Stderr)),
	)
	return result, toolErr
}
