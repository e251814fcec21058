package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"scrolla/internal/config"
	"scrolla/internal/media/ffprobe"
	"scrolla/internal/script"
	"scrolla/internal/services"
	"scrolla/internal/subtitles"
	"scrolla/internal/toolexec"
)

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	var audioDir string
	var output string
	var policy string

	cmd := &cobra.Command{
		Use:   "subtitles SCRIPT",
		Short: "Write the caption track for a script without rendering video",
		Long: `Subtitles probes every scene's narration and prints the SRT track a
render would produce. Images are not required. Use --output to write a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("unknown-duration") {
				cfg.Workflow.UnknownDurationPolicy = policy
			}
			scriptPath, err := config.ExpandPath(args[0])
			if err != nil {
				return services.Wrap(services.ErrValidation, "subtitles", "script", "resolve script path", err)
			}
			s, err := script.Load(scriptPath)
			if err != nil {
				return err
			}
			if err := s.Validate(); err != nil {
				return err
			}
			assets, err := resolveAssets(scriptPath, audioDir, "")
			if err != nil {
				return err
			}

			timeline, probes, err := buildTimeline(cmd.Context(), cfg, logger, s, assets)
			if err != nil {
				return err
			}
			for _, scene := range timeline.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "scene %d skipped: %s\n", scene, probes[scene].Reason)
			}

			output = strings.TrimSpace(output)
			if output == "" || output == "-" {
				return timeline.WriteSRT(cmd.OutOrStdout())
			}
			if output, err = config.ExpandPath(output); err != nil {
				return services.Wrap(services.ErrValidation, "subtitles", "output", "resolve output path", err)
			}
			if err := timeline.WriteFile(output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d captions (%.3fs) to %s\n", len(timeline.Entries), timeline.Total().Seconds(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&audioDir, "audio-dir", "", "Directory holding scene<N> narration files")
	cmd.Flags().StringVarP(&output, "output", "o", "", "SRT destination (default stdout)")
	cmd.Flags().StringVar(&policy, "unknown-duration", "", "Policy for unmeasurable narration: skip or hold")
	return cmd
}

// buildTimeline probes narration for every scene and lays out captions.
// Scenes whose narration file is missing are reported like unknown durations.
func buildTimeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, s script.Script, assets script.Assets) (subtitles.Timeline, map[int]ffprobe.Duration, error) {
	unknown, err := subtitles.ParsePolicy(cfg.Workflow.UnknownDurationPolicy)
	if err != nil {
		return subtitles.Timeline{}, nil, err
	}
	runner := toolexec.NewRunner(toolexec.WithLogger(logger))
	prober := ffprobe.NewProber(cfg.FFprobeBinary(), cfg.ProbeTimeout(), runner, logger)

	probes := make(map[int]ffprobe.Duration, len(s.Scenes))
	texts := make([]subtitles.SceneText, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		if err := ctx.Err(); err != nil {
			return subtitles.Timeline{}, nil, err
		}
		path, err := assets.Audio(scene.Number)
		if err != nil {
			probes[scene.Number] = ffprobe.Duration{Reason: services.Reason(err)}
		} else {
			probes[scene.Number] = prober.Duration(ctx, path)
		}
		texts = append(texts, subtitles.SceneText{Number: scene.Number, Text: scene.Text, HoldSeconds: scene.Timeframe})
	}
	timeline, err := subtitles.Build(texts, func(scene int) (float64, bool) {
		d := probes[scene]
		return d.Seconds, d.Known
	}, subtitles.Policy{Unknown: unknown, HoldSeconds: cfg.Workflow.HoldSeconds})
	if err != nil {
		return subtitles.Timeline{}, nil, err
	}
	return timeline, probes, nil
}
