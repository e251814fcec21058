package preflight

import (
	"context"
	"fmt"
	"strings"

	"scrolla/internal/config"
	"scrolla/internal/deps"
	"scrolla/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem and asset checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	if cfg.Workflow.History {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	results = append(results, CheckFreeSpace("Work free space", cfg.Paths.WorkDir, float64(cfg.Workflow.MinFreeGiB)))
	results = append(results, CheckOptionalAsset("Watermark", cfg.Watermark.Path))
	results = append(results, CheckOptionalAsset("Background music", cfg.Music.Path))
	if cfg.Captions.FontFile != "" {
		results = append(results, CheckOptionalAsset("Caption font", cfg.Captions.FontFile))
	}
	for _, status := range CheckSystemDeps(cfg) {
		results = append(results, FromDependency(status))
	}
	if ctx.Err() != nil {
		results = append(results, Result{Name: "Preflight", Detail: ctx.Err().Error()})
	}
	return results
}

// FromDependency converts a binary availability status into a check result.
func FromDependency(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: status.Detail}
	if status.Available {
		result.Detail = status.Path
	}
	return result
}

// Err folds failed checks into one configuration error, or nil when every
// check passed.
func Err(results []Result) error {
	var failed []string
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(failed, "; "), nil)
}
