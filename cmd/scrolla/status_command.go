package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scrolla/internal/deps"
	"scrolla/internal/preflight"
	"scrolla/internal/toolexec"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, directories and media tooling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			var lines []string

			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			lines = append(lines, renderStatusLine("Config file", statusInfo, ctx.configPath, colorize))
			lines = append(lines, renderStatusLine("Canvas", statusInfo, fmt.Sprintf("%dx%d", cfg.Canvas.Width, cfg.Canvas.Height), colorize))
			lines = append(lines, renderStatusLine("Workers", statusInfo, fmt.Sprint(cfg.Workflow.Workers), colorize))
			lines = append(lines, renderStatusLine("Unknown durations", statusInfo, cfg.Workflow.UnknownDurationPolicy, colorize))
			lines = append(lines, renderStatusLine("Run history", statusInfo, yesNo(cfg.Workflow.History), colorize))

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			ffmpegFound := false
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				if result.Name == "FFmpeg" && result.Passed {
					ffmpegFound = true
				}
				lines = append(lines, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("FFmpeg filters", colorize)...)
			if !ffmpegFound {
				lines = append(lines, renderStatusLine("Filters", statusWarn, "ffmpeg not found; filters not checked", colorize))
			} else {
				runner := toolexec.NewRunner(toolexec.WithLogger(logger))
				missing, err := deps.CheckFilters(cmd.Context(), runner, cfg.FFmpegBinary(), deps.RequiredFilters)
				switch {
				case err != nil:
					lines = append(lines, renderStatusLine("Filters", statusError, err.Error(), colorize))
				case len(missing) > 0:
					lines = append(lines, renderStatusLine("Filters", statusError, "missing "+strings.Join(missing, ", "), colorize))
				default:
					lines = append(lines, renderStatusLine("Filters", statusOK, strings.Join(deps.RequiredFilters, ", "), colorize))
				}
			}

			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
}
