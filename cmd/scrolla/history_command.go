package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scrolla/internal/history"
	"scrolla/internal/services"
)

const historyTimeLayout = "2006-01-02 15:04:05"

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent assembly runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					formatHistoryTime(run.StartedAt),
					string(run.Status),
					strconv.FormatFloat(run.TotalSeconds, 'f', 1, 64),
					run.OutputPath,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Status", "Seconds", "Output"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show per-scene outcomes for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if errors.Is(err, history.ErrNotFound) {
				return services.Wrap(services.ErrValidation, "history", "show", fmt.Sprintf("unknown run %q", args[0]), err)
			}
			if err != nil {
				return err
			}
			scenes, err := store.RunScenes(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			kind := statusInfo
			switch run.Status {
			case history.RunSucceeded:
				kind = statusOK
			case history.RunFailed:
				kind = statusError
			}
			fmt.Fprintln(out, renderStatusLine("Run", kind, fmt.Sprintf("%s (%s)", run.ID, run.Status), colorize))
			fmt.Fprintln(out, renderStatusLine("Output", statusInfo, run.OutputPath, colorize))
			fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatHistoryTime(run.StartedAt), colorize))
			if !run.FinishedAt.IsZero() {
				fmt.Fprintln(out, renderStatusLine("Finished", statusInfo, formatHistoryTime(run.FinishedAt), colorize))
			}
			if run.Error != "" {
				fmt.Fprintln(out, renderStatusLine("Error", statusError, run.Error, colorize))
			}
			if run.ErrorDetail != "" {
				fmt.Fprintln(out, "Tool output:")
				for _, line := range strings.Split(run.ErrorDetail, "\n") {
					fmt.Fprintf(out, "  %s\n", line)
				}
			}
			if len(scenes) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(scenes))
			for _, scene := range scenes {
				reason := scene.Reason
				if scene.Held {
					reason = "held over silence"
				}
				rows = append(rows, []string{
					strconv.Itoa(scene.Number),
					string(scene.Status),
					strconv.FormatFloat(scene.DurationSeconds, 'f', 3, 64),
					reason,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Scene", "Status", "Seconds", "Reason"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func requireHistory(ctx *commandContext) (*history.Store, error) {
	store, err := ctx.openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open", "run history is disabled (workflow.history = false)", nil)
	}
	return store, nil
}

func formatHistoryTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(historyTimeLayout)
}
