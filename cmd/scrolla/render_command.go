package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scrolla/internal/assembly"
	"scrolla/internal/config"
	"scrolla/internal/logging"
	"scrolla/internal/preflight"
	"scrolla/internal/script"
	"scrolla/internal/services"
	"scrolla/internal/stageexec"
	"scrolla/internal/textutil"
	"scrolla/internal/toolexec"
)

type renderOptions struct {
	audioDir      string
	imageDir      string
	output        string
	workers       int
	policy        string
	holdSeconds   float64
	keep          bool
	skipPreflight bool
	jsonOut       bool
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render SCRIPT",
		Short: "Assemble the final video from a scene script and its assets",
		Long: `Render probes every scene's narration, builds the caption track,
letterboxes the stills, renders one clip per scene and concatenates them
with optional background music. Scenes with missing or unreadable assets
are skipped; the run fails only when nothing renders or the final mix fails.

Assets are looked up by scene number: <audio-dir>/scene<N>.mp3|.wav|.m4a and
<image-dir>/image<N>.jpg|.jpeg|.png|.webp. Both directories default to
"audio" and "images" next to the script.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, ctx, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.audioDir, "audio-dir", "", "Directory holding scene<N> narration files")
	cmd.Flags().StringVar(&opts.imageDir, "image-dir", "", "Directory holding image<N> stills")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output video path (default <output_dir>/<script name>.mp4)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Parallel clip renders (overrides workflow.workers)")
	cmd.Flags().StringVar(&opts.policy, "unknown-duration", "", "Policy for unmeasurable narration: skip or hold")
	cmd.Flags().Float64Var(&opts.holdSeconds, "hold-seconds", 0, "Fallback scene length under the hold policy")
	cmd.Flags().BoolVar(&opts.keep, "keep-intermediates", false, "Keep clips, stills and manifest after success")
	cmd.Flags().BoolVar(&opts.skipPreflight, "skip-preflight", false, "Do not check directories and binaries before rendering")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the run report as JSON")
	return cmd
}

func runRender(cmd *cobra.Command, ctx *commandContext, scriptPath string, opts renderOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	applyRenderOverrides(cmd, cfg, opts)
	if err := cfg.Validate(); err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "flags", "invalid override", err)
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	job, err := buildJob(cfg, scriptPath, opts)
	if err != nil {
		return err
	}

	if !opts.skipPreflight {
		if err := preflight.Err(preflight.RunAll(cmd.Context(), cfg)); err != nil {
			return err
		}
	}

	store, err := ctx.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir or set workflow.history = false"),
			logging.String(logging.FieldImpact, "run will not appear in scrolla history"),
		)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	orchOpts := []assembly.Option{
		assembly.WithLogger(logger),
		assembly.WithObserver(func(stage assembly.Stage) {
			if !opts.jsonOut {
				fmt.Fprintln(out, stageLine(stageexec.Label(string(stage)), colorize))
			}
		}),
	}
	if store != nil {
		orchOpts = append(orchOpts, assembly.WithHistory(store))
	}
	orch, err := assembly.New(cfg, orchOpts...)
	if err != nil {
		return err
	}

	report, runErr := orch.Run(cmd.Context(), job)
	if opts.jsonOut {
		if err := writeJSON(cmd, newReportView(report, runErr)); err != nil {
			return err
		}
	} else {
		printReport(out, report, colorize)
		printToolOutput(cmd.ErrOrStderr(), runErr)
	}
	return runErr
}

func applyRenderOverrides(cmd *cobra.Command, cfg *config.Config, opts renderOptions) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.Workflow.Workers = opts.workers
	}
	if flags.Changed("unknown-duration") {
		cfg.Workflow.UnknownDurationPolicy = strings.ToLower(strings.TrimSpace(opts.policy))
	}
	if flags.Changed("hold-seconds") {
		cfg.Workflow.HoldSeconds = opts.holdSeconds
	}
	if flags.Changed("keep-intermediates") {
		cfg.Workflow.KeepIntermediates = opts.keep
	}
}

func buildJob(cfg *config.Config, scriptPath string, opts renderOptions) (assembly.Job, error) {
	scriptPath, err := config.ExpandPath(scriptPath)
	if err != nil {
		return assembly.Job{}, services.Wrap(services.ErrValidation, "render", "script", "resolve script path", err)
	}
	s, err := script.Load(scriptPath)
	if err != nil {
		return assembly.Job{}, err
	}
	assets, err := resolveAssets(scriptPath, opts.audioDir, opts.imageDir)
	if err != nil {
		return assembly.Job{}, err
	}
	output := strings.TrimSpace(opts.output)
	if output == "" {
		output = filepath.Join(cfg.Paths.OutputDir, textutil.VideoName(scriptPath, ".mp4", "video"))
	} else if output, err = config.ExpandPath(output); err != nil {
		return assembly.Job{}, services.Wrap(services.ErrValidation, "render", "output", "resolve output path", err)
	}
	return assembly.Job{Script: s, Assets: assets, Output: output}, nil
}

// resolveAssets defaults both asset directories to siblings of the script.
func resolveAssets(scriptPath, audioDir, imageDir string) (script.Assets, error) {
	base := filepath.Dir(scriptPath)
	resolve := func(value, fallback string) (string, error) {
		if strings.TrimSpace(value) == "" {
			return filepath.Join(base, fallback), nil
		}
		return config.ExpandPath(value)
	}
	audio, err := resolve(audioDir, "audio")
	if err != nil {
		return script.Assets{}, services.Wrap(services.ErrValidation, "render", "assets", "resolve audio directory", err)
	}
	images, err := resolve(imageDir, "images")
	if err != nil {
		return script.Assets{}, services.Wrap(services.ErrValidation, "render", "assets", "resolve image directory", err)
	}
	return script.Assets{AudioDir: audio, ImageDir: images}, nil
}

func printReport(out io.Writer, report assembly.Report, colorize bool) {
	if len(report.Outcomes) > 0 {
		rows := make([][]string, 0, len(report.Outcomes))
		for _, outcome := range report.Outcomes {
			duration := ""
			if outcome.Status == assembly.SceneRendered {
				duration = strconv.FormatFloat(outcome.Duration.Seconds(), 'f', 3, 64)
			}
			reason := outcome.Reason
			if outcome.Held {
				reason = "held over silence"
			}
			rows = append(rows, []string{strconv.Itoa(outcome.Scene), string(outcome.Status), duration, reason})
		}
		fmt.Fprintln(out, renderTable([]string{"Scene", "Status", "Seconds", "Note"}, rows, []columnAlignment{alignRight, alignLeft, alignRight, alignLeft}))
	}
	if report.RunID != "" {
		fmt.Fprintln(out, renderStatusLine("Run", statusInfo, report.RunID, colorize))
	}
	if report.Subtitles != "" {
		fmt.Fprintln(out, renderStatusLine("Video", statusOK, report.Output, colorize))
		fmt.Fprintln(out, renderStatusLine("Subtitles", statusOK, report.Subtitles, colorize))
		fmt.Fprintln(out, renderStatusLine("Length", statusOK, fmt.Sprintf("%.3fs", report.Total.Seconds()), colorize))
	}
	if skipped := len(report.Skipped()); skipped > 0 {
		fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, fmt.Sprintf("%d scene(s)", skipped), colorize))
	}
	if report.WorkDir != "" {
		fmt.Fprintln(out, renderStatusLine("Intermediates", statusInfo, report.WorkDir, colorize))
	}
}

// printToolOutput echoes the stderr a failed tool left behind, indented
// under a header naming the tool.
func printToolOutput(w io.Writer, runErr error) {
	detail := toolexec.Diagnostics(runErr)
	if detail == "" {
		return
	}
	tool := "tool"
	var toolErr *toolexec.Error
	if errors.As(runErr, &toolErr) && toolErr.Tool != "" {
		tool = toolErr.Tool
	}
	fmt.Fprintf(w, "%s output:\n", tool)
	for _, line := range strings.Split(detail, "\n") {
		fmt.Fprintf(w, "  %s\n", strings.TrimRight(line, "\r"))
	}
}

type sceneView struct {
	Scene           int     `json:"scene"`
	Status          string  `json:"status"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Held            bool    `json:"held,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type reportView struct {
	RunID        string      `json:"run_id"`
	Output       string      `json:"output"`
	Subtitles    string      `json:"subtitles,omitempty"`
	WorkDir      string      `json:"work_dir,omitempty"`
	TotalSeconds float64     `json:"total_seconds"`
	Scenes       []sceneView `json:"scenes"`
	Error        string      `json:"error,omitempty"`
	ErrorDetail  string      `json:"error_detail,omitempty"`
}

func newReportView(report assembly.Report, runErr error) reportView {
	view := reportView{
		RunID:        report.RunID,
		Output:       report.Output,
		Subtitles:    report.Subtitles,
		WorkDir:      report.WorkDir,
		TotalSeconds: report.Total.Seconds(),
		Scenes:       make([]sceneView, 0, len(report.Outcomes)),
	}
	if runErr != nil {
		view.Error = runErr.Error()
		view.ErrorDetail = toolexec.Diagnostics(runErr)
	}
	for _, outcome := range report.Outcomes {
		scene := sceneView{
			Scene:           outcome.Scene,
			Status:          string(outcome.Status),
			DurationSeconds: outcome.Duration.Seconds(),
			Held:            outcome.Held,
			Reason:          outcome.Reason,
		}
		if outcome.Err != nil {
			scene.Error = outcome.Err.Error()
		}
		view.Scenes = append(view.Scenes, scene)
	}
	return view
}
