package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"scrolla/internal/logging"
	"scrolla/internal/services"
	"scrolla/internal/toolexec"
)

// Observer is notified as a run enters each stage.
type Observer func(stage string)

// Options controls how a single orchestrator stage is executed and logged.
type Options struct {
	Logger    *slog.Logger
	StageName string
	Observer  Observer
}

// Func is the body of a stage. It receives a context carrying the stage name.
type Func func(context.Context) error

// Run executes fn as the named stage, emitting start, completion and failure
// events with the standardized fields.
func Run(ctx context.Context, opts Options, fn Func) error {
	if fn == nil {
		return fmt.Errorf("stage body unavailable: %s", opts.StageName)
	}
	if strings.TrimSpace(opts.StageName) == "" {
		return fmt.Errorf("stage name is required")
	}

	stageCtx := services.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)
	if opts.Observer != nil {
		opts.Observer(opts.StageName)
	}

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("stage_label", Label(opts.StageName)),
	)
	started := time.Now()

	if err := fn(stageCtx); err != nil {
		attrs := []logging.Attr{
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("reason", services.Reason(err)),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		}
		if detail := toolexec.Diagnostics(err); detail != "" {
			attrs = append(attrs, logging.String("stderr", detail))
		}
		logging.ErrorWithContext(stageLogger, "stage failed", "stage_failure", attrs...)
		return err
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}

// Label turns a stage constant such as RENDER_SCENES into "Render Scenes".
func Label(stage string) string {
	if stage == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(stage, "_", " "))
	for i, part := range parts {
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
