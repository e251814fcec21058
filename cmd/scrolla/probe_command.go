package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scrolla/internal/media/ffprobe"
	"scrolla/internal/toolexec"
)

type probeView struct {
	Path    string  `json:"path"`
	Known   bool    `json:"known"`
	Seconds float64 `json:"seconds,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Video   int     `json:"video_streams,omitempty"`
	Audio   int     `json:"audio_streams,omitempty"`
	Codec   string  `json:"audio_codec,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var inspect bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "probe FILE...",
		Short: "Measure media durations the way a render would",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			runner := toolexec.NewRunner(toolexec.WithLogger(logger))
			prober := ffprobe.NewProber(cfg.FFprobeBinary(), cfg.ProbeTimeout(), runner, logger)

			views := make([]probeView, 0, len(args))
			for _, path := range args {
				d := prober.Duration(cmd.Context(), path)
				view := probeView{Path: path, Known: d.Known, Seconds: d.Seconds, Reason: d.Reason}
				if inspect && d.Known {
					result, err := prober.Inspect(cmd.Context(), path)
					if err != nil {
						view.Reason = err.Error()
					} else {
						view.Video = result.VideoStreamCount()
						view.Audio = result.AudioStreamCount()
						view.Codec = result.PrimaryCodec("audio")
					}
				}
				views = append(views, view)
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, views)
			}
			headers := []string{"File", "Seconds", "Note"}
			aligns := []columnAlignment{alignLeft, alignRight, alignLeft}
			if inspect {
				headers = []string{"File", "Seconds", "Video", "Audio", "Codec", "Note"}
				aligns = []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}
			}
			rows := make([][]string, 0, len(views))
			for _, view := range views {
				seconds := "unknown"
				if view.Known {
					seconds = strconv.FormatFloat(view.Seconds, 'f', 3, 64)
				}
				if inspect {
					rows = append(rows, []string{view.Path, seconds, strconv.Itoa(view.Video), strconv.Itoa(view.Audio), view.Codec, view.Reason})
				} else {
					rows = append(rows, []string{view.Path, seconds, view.Reason})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}

	cmd.Flags().BoolVar(&inspect, "inspect", false, "Also report stream counts and the audio codec")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print results as JSON")
	return cmd
}
