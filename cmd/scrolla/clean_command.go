package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"scrolla/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	var list bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove intermediate run directories left in work_dir",
		Long: `Failed runs and runs with keep_intermediates leave a run-<id> directory
under work_dir holding normalized stills, per-scene clips, the manifest and
the caption track. Clean removes those older than --older-than.

Use --list to show them without removing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				dirs, err := staging.ListDirectories(cfg.Paths.WorkDir)
				if err != nil {
					return fmt.Errorf("list run directories: %w", err)
				}
				if jsonOut {
					if dirs == nil {
						dirs = []staging.DirInfo{}
					}
					return writeJSON(cmd, map[string]any{"work_dir": cfg.Paths.WorkDir, "directories": dirs})
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "No run directories found")
					return nil
				}
				var total int64
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					total += dir.Size
					rows = append(rows, []string{dir.Name, formatAge(time.Since(dir.ModTime)), formatBytes(dir.Size)})
				}
				fmt.Fprintf(out, "Work directory: %s\n\n", cfg.Paths.WorkDir)
				fmt.Fprintln(out, renderTable([]string{"Run", "Age", "Size"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
				fmt.Fprintf(out, "\nTotal: %d directories, %s\n", len(dirs), formatBytes(total))
				return nil
			}

			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result := staging.CleanStale(cmd.Context(), cfg.Paths.WorkDir, olderThan, logger)
			if jsonOut {
				errs := make([]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
				}
				return writeJSON(cmd, map[string]any{"removed": result.Removed, "errors": errs})
			}
			if len(result.Removed) == 0 && len(result.Errors) == 0 {
				fmt.Fprintln(out, "No run directories to clean")
				return nil
			}
			fmt.Fprintf(out, "Removed %d run directories", len(result.Removed))
			if len(result.Errors) > 0 {
				fmt.Fprintf(out, ", %d errors", len(result.Errors))
			}
			fmt.Fprintln(out)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "Only remove directories last modified before this age")
	cmd.Flags().BoolVar(&list, "list", false, "List run directories instead of removing them")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}

func formatAge(d time.Duration) string {
	d = d.Truncate(time.Minute)
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
