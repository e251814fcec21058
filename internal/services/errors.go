package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingAsset     = errors.New("missing asset")
	ErrUnknownDuration  = errors.New("unknown duration")
	ErrExternalTool     = errors.New("external tool error")
	ErrTimeout          = errors.New("timeout")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrNoScenesRendered = errors.New("no scenes rendered")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Disposition describes how the orchestrator reacts to a failure.
type Disposition string

const (
	// DispositionSkip drops the owning scene and continues the run.
	DispositionSkip Disposition = "skip"
	// DispositionFatal aborts the whole run.
	DispositionFatal Disposition = "fatal"
)

// SceneDisposition classifies a per-scene failure. Missing assets, unknown
// durations, tool failures and timeouts only cost the scene; validation and
// configuration problems (and cancellation) abort the run.
func SceneDisposition(err error) Disposition {
	switch {
	case err == nil:
		return DispositionSkip
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return DispositionFatal
	case errors.Is(err, ErrMissingAsset), errors.Is(err, ErrUnknownDuration),
		errors.Is(err, ErrExternalTool), errors.Is(err, ErrTimeout):
		return DispositionSkip
	default:
		return DispositionFatal
	}
}

// Reason returns a short machine-friendly label for the marker carried by err.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingAsset):
		return "missing_asset"
	case errors.Is(err, ErrUnknownDuration):
		return "unknown_duration"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalTool):
		return "tool_failure"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNoScenesRendered):
		return "no_scenes_rendered"
	default:
		return "error"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
