package ffprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"scrolla/internal/logging"
	"scrolla/internal/services"
	"scrolla/internal/toolexec"
)

// errUnparseable marks scalar output that is not a usable duration.
var errUnparseable = errors.New("unparseable duration")

// Duration is the outcome of probing one media file. Known is false whenever
// the length could not be measured; Reason then explains why.
type Duration struct {
	Seconds float64
	Known   bool
	Reason  string
}

// Err converts an unknown duration into a classified error. It returns nil
// when the duration is known.
func (d Duration) Err(path string) error {
	if d.Known {
		return nil
	}
	return services.Wrap(services.ErrUnknownDuration, "probe", "duration", fmt.Sprintf("%s: %s", path, d.Reason), nil)
}

func unknown(format string, args ...any) Duration {
	return Duration{Reason: fmt.Sprintf(format, args...)}
}

// Prober measures media durations with ffprobe.
type Prober struct {
	binary  string
	timeout time.Duration
	runner  *toolexec.Runner
	logger  *slog.Logger
}

// NewProber constructs a Prober. A blank binary falls back to "ffprobe"; a nil
// runner uses os/exec.
func NewProber(binary string, timeout time.Duration, runner *toolexec.Runner, logger *slog.Logger) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if runner == nil {
		runner = toolexec.NewRunner()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Prober{binary: binary, timeout: timeout, runner: runner, logger: logger}
}

// Duration returns the playable length of the file at path. It never fails:
// every problem is reported as an unknown duration with a reason.
func (p *Prober) Duration(ctx context.Context, path string) Duration {
	d := p.duration(ctx, path)
	if !d.Known {
		logging.WithContext(ctx, p.logger).Debug("duration unknown",
			logging.String("path", path),
			logging.String("reason", d.Reason),
		)
	}
	return d
}

func (p *Prober) duration(ctx context.Context, path string) Duration {
	path = strings.TrimSpace(path)
	if path == "" {
		return unknown("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return unknown("file not found")
		}
		return unknown("file unreadable: %v", err)
	}
	if !info.Mode().IsRegular() {
		return unknown("not a regular file")
	}

	out, err := p.runner.Run(ctx, toolexec.Command{
		Tool:    "ffprobe",
		Binary:  p.binary,
		Args:    []string{"-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", "--", path},
		Inputs:  []string{path},
		Timeout: p.timeout,
	})
	if err != nil {
		var toolErr *toolexec.Error
		switch {
		case errors.As(err, &toolErr) && toolErr.TimedOut:
			return unknown("probe timed out after %s", p.timeout)
		case errors.As(err, &toolErr):
			return unknown("ffprobe failed: %s", toolErr.Error())
		case ctx.Err() != nil:
			return unknown("probe cancelled")
		default:
			return unknown("ffprobe failed: %v", err)
		}
	}

	seconds, err := parseScalar(string(out.Stdout))
	if err != nil {
		return unknown("%v", err)
	}
	return Duration{Seconds: seconds, Known: true}
}

// parseScalar reads the first non-empty line of a scalar ffprobe report.
func parseScalar(output string) (float64, error) {
	var line string
	for _, candidate := range strings.Split(output, "\n") {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			line = candidate
			break
		}
	}
	if line == "" || strings.EqualFold(line, "N/A") {
		return 0, errors.New("no duration reported")
	}
	value, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", errUnparseable, line)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%w %q", errUnparseable, line)
	}
	if value <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", line)
	}
	return value, nil
}
