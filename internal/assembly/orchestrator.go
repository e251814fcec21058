package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scrolla/internal/config"
	"scrolla/internal/fileutil"
	"scrolla/internal/history"
	"scrolla/internal/imagenorm"
	"scrolla/internal/layout"
	"scrolla/internal/logging"
	"scrolla/internal/media/ffprobe"
	"scrolla/internal/preflight"
	"scrolla/internal/render"
	"scrolla/internal/script"
	"scrolla/internal/services"
	"scrolla/internal/stageexec"
	"scrolla/internal/staging"
	"scrolla/internal/subtitles"
	"scrolla/internal/toolexec"
)

// Stage names one step of the assembly state machine.
type Stage string

const (
	StageNormalizeImages Stage = "NORMALIZE_IMAGES"
	StageRenderScenes    Stage = "RENDER_SCENES"
	StageBuildManifest   Stage = "BUILD_MANIFEST"
	StageConcatenate     Stage = "CONCATENATE"
	StageCleanup         Stage = "CLEANUP"
	StageDone            Stage = "DONE"
)

// Job is one assembly request.
type Job struct {
	Script script.Script
	Assets script.Assets
	Output string
}

// DurationProber measures narration length.
type DurationProber interface {
	Duration(ctx context.Context, path string) ffprobe.Duration
}

// ClipRenderer renders one scene clip.
type ClipRenderer interface {
	Render(ctx context.Context, req render.ClipRequest) (render.Clip, error)
}

// ImageNormalizer letterboxes a still onto the canvas.
type ImageNormalizer interface {
	Normalize(ctx context.Context, src, dst string) (imagenorm.Result, error)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithExecutor routes every ffmpeg and ffprobe invocation through exec.
func WithExecutor(exec toolexec.Executor) Option {
	return func(o *Orchestrator) { o.executor = exec }
}

// WithHistory records runs and scene outcomes in store.
func WithHistory(store *history.Store) Option {
	return func(o *Orchestrator) { o.history = store }
}

// WithObserver is called as each stage is entered, and with StageDone on success.
func WithObserver(fn func(Stage)) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithProber replaces the ffprobe-backed duration prober.
func WithProber(p DurationProber) Option {
	return func(o *Orchestrator) { o.prober = p }
}

// WithRenderer replaces the ffmpeg clip renderer.
func WithRenderer(r ClipRenderer) Option {
	return func(o *Orchestrator) { o.renderer = r }
}

// WithNormalizer replaces the image normalizer.
func WithNormalizer(n ImageNormalizer) Option {
	return func(o *Orchestrator) { o.normalizer = n }
}

// Orchestrator turns a script and its per-scene assets into one video.
type Orchestrator struct {
	cfg        *config.Config
	logger     *slog.Logger
	executor   toolexec.Executor
	runner     *toolexec.Runner
	prober     DurationProber
	renderer   ClipRenderer
	normalizer ImageNormalizer
	history    *history.Store
	observer   func(Stage)
	layout     layout.Config
	policy     subtitles.Policy
	concat     ConcatSettings
}

// New wires an Orchestrator from configuration.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "assembly", "init", "config is required", nil)
	}
	o := &Orchestrator{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "assembly")

	runnerOpts := []toolexec.Option{toolexec.WithLogger(o.logger)}
	if o.executor != nil {
		runnerOpts = append(runnerOpts, toolexec.WithExecutor(o.executor))
	}
	o.runner = toolexec.NewRunner(runnerOpts...)

	captions, err := layout.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	o.layout = captions

	unknown, err := subtitles.ParsePolicy(cfg.Workflow.UnknownDurationPolicy)
	if err != nil {
		return nil, err
	}
	o.policy = subtitles.Policy{Unknown: unknown, HoldSeconds: cfg.Workflow.HoldSeconds}

	if o.prober == nil {
		o.prober = ffprobe.NewProber(cfg.FFprobeBinary(), cfg.ProbeTimeout(), o.runner, o.logger)
	}
	if o.normalizer == nil {
		normalizer, err := imagenorm.New(imagenorm.Options{
			Width:       cfg.Canvas.Width,
			Height:      cfg.Canvas.Height,
			Background:  cfg.Canvas.Background,
			JPEGQuality: cfg.Encoding.ImageJPEGQuality,
		}, o.logger)
		if err != nil {
			return nil, err
		}
		o.normalizer = normalizer
	}
	fadeIn := subtitles.Milliseconds(cfg.Encoding.FadeInSeconds)
	fadeOut := subtitles.Milliseconds(cfg.Encoding.FadeOutSeconds)
	if o.renderer == nil {
		o.renderer = render.New(render.Settings{
			FFmpeg:       cfg.FFmpegBinary(),
			VideoCodec:   cfg.Encoding.VideoCodec,
			AudioCodec:   cfg.Encoding.AudioCodec,
			PixelFormat:  cfg.Encoding.PixelFormat,
			FrameRate:    cfg.Encoding.FrameRate,
			FadeIn:       fadeIn,
			FadeOut:      fadeOut,
			WatermarkTop: cfg.Watermark.TopOffset,
			Timeout:      cfg.RenderTimeout(),
			Layout:       captions,
		}, o.runner, o.logger)
	}
	o.concat = ConcatSettings{
		FFmpeg:       cfg.FFmpegBinary(),
		VideoCodec:   cfg.Encoding.VideoCodec,
		AudioCodec:   cfg.Encoding.AudioCodec,
		AudioBitrate: cfg.Encoding.AudioBitrate,
		PixelFormat:  cfg.Encoding.PixelFormat,
		FadeIn:       fadeIn,
		FadeOut:      fadeOut,
		MusicVolume:  cfg.Music.Volume,
		Timeout:      cfg.ConcatTimeout(),
	}
	return o, nil
}

// Run executes one assembly. Scene-level problems skip the scene; the run
// fails only when nothing renders, the final mix fails, or the context ends.
// Intermediates are removed only after success.
func (o *Orchestrator) Run(ctx context.Context, job Job) (report Report, err error) {
	output, err := resolveOutput(job.Output)
	if err != nil {
		return Report{}, err
	}
	if len(job.Script.Scenes) > 0 {
		if err := job.Script.Validate(); err != nil {
			return Report{}, err
		}
	}

	lock := flock.New(output + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "assembly", "lock", "acquire output lock", err)
	}
	if !locked {
		return Report{}, services.Wrap(services.ErrValidation, "assembly", "lock", fmt.Sprintf("another run is writing %s", output), nil)
	}
	defer func() { _ = lock.Unlock() }()

	runID, recorded := o.beginRun(ctx, output)
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)
	report = Report{RunID: runID, Output: output}
	p := newRunPlan()
	defer func() {
		report.Outcomes = p.sortedOutcomes()
		if recorded {
			o.finishRun(ctx, report, err)
		}
	}()

	if minGiB := o.cfg.Workflow.MinFreeGiB; minGiB > 0 {
		if check := preflight.CheckFreeSpace("work", o.cfg.Paths.WorkDir, float64(minGiB)); !check.Passed {
			return report, services.Wrap(services.ErrConfiguration, "assembly", "preflight", check.Detail, nil)
		}
	}
	workDir, err := staging.Prepare(o.cfg.Paths.WorkDir, runID)
	if err != nil {
		return report, services.Wrap(services.ErrConfiguration, "assembly", "prepare", "create run work directory", err)
	}
	report.WorkDir = workDir
	logger.Info("assembly started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("output", output),
		logging.String("work_dir", workDir),
		logging.Int("scenes", len(job.Script.Scenes)),
		logging.Int("workers", o.workers()),
	)

	if err := o.plan(ctx, job, p); err != nil {
		return report, err
	}
	report.Planned = p.timeline

	err = o.stage(ctx, StageNormalizeImages, func(ctx context.Context) error {
		return o.normalizeImages(ctx, p, workDir)
	})
	if err != nil {
		return report, err
	}

	err = o.stage(ctx, StageRenderScenes, func(ctx context.Context) error {
		return o.renderScenes(ctx, p, workDir)
	})
	if err != nil {
		return report, err
	}

	var manifest, runSubtitles string
	err = o.stage(ctx, StageBuildManifest, func(ctx context.Context) error {
		clips, scenes := p.rendered()
		if len(clips) == 0 {
			return services.Wrap(services.ErrNoScenesRendered, "assembly", "manifest", "every scene was skipped", nil)
		}
		report.Timeline = p.timeline.Restrict(scenes)
		report.Total = report.Timeline.Total()
		runSubtitles = filepath.Join(workDir, staging.SubtitleName)
		if err := report.Timeline.WriteFile(runSubtitles); err != nil {
			return err
		}
		manifest = filepath.Join(workDir, staging.ManifestName)
		return WriteManifest(manifest, clips)
	})
	if err != nil {
		return report, err
	}

	err = o.stage(ctx, StageConcatenate, func(ctx context.Context) error {
		return o.concatenate(ctx, manifest, runSubtitles, &report)
	})
	if err != nil {
		return report, err
	}

	err = o.stage(ctx, StageCleanup, func(ctx context.Context) error {
		if o.cfg.Workflow.KeepIntermediates {
			logging.WithContext(ctx, o.logger).Info("keeping intermediates", logging.String("work_dir", workDir))
			return nil
		}
		if staging.RemoveRun(workDir, logging.WithContext(ctx, o.logger)) == nil {
			report.WorkDir = ""
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	o.observe(string(StageDone))
	logger.Info("assembly complete",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", output),
		logging.Float64("total_seconds", report.Total.Seconds()),
		logging.Int("rendered", len(report.Timeline.Entries)),
		logging.Int("skipped", len(p.outcomes)-len(report.Timeline.Entries)),
	)
	return report, nil
}

func (o *Orchestrator) normalizeImages(ctx context.Context, p *runPlan, workDir string) error {
	failures, err := o.forEach(ctx, p.scenes, func(ctx context.Context, sp *scenePlan) error {
		dst := filepath.Join(workDir, staging.ImagesDir, fmt.Sprintf("image%d.jpg", sp.entry.Scene))
		result, err := o.normalizer.Normalize(ctx, sp.image, dst)
		if err != nil {
			_ = os.Remove(dst)
			return err
		}
		sp.normalized = result.Path
		return nil
	})
	if err != nil {
		return err
	}
	o.dropFailures(ctx, p, failures)
	return nil
}

func (o *Orchestrator) renderScenes(ctx context.Context, p *runPlan, workDir string) error {
	// Fades are scheduled against the length of everything still in play.
	total := p.timeline.Restrict(p.active()).Total()
	watermark := o.optionalAsset(ctx, o.cfg.Watermark.Path, "watermark")

	failures, err := o.forEach(ctx, p.scenes, func(ctx context.Context, sp *scenePlan) error {
		var caption layout.Block
		if o.cfg.Captions.Enabled {
			block, err := o.layout.Layout(sp.entry.Text)
			if err != nil {
				return err
			}
			caption = block
		}
		out := filepath.Join(workDir, staging.ClipsDir, fmt.Sprintf("scene_%d.mp4", sp.entry.Scene))
		clip, err := o.renderer.Render(ctx, render.ClipRequest{
			Scene:     sp.entry.Scene,
			Image:     sp.normalized,
			Audio:     sp.audio,
			Silent:    sp.entry.Held,
			Duration:  sp.entry.Duration(),
			Total:     total,
			Caption:   caption,
			Watermark: watermark,
			Output:    out,
		})
		if err != nil {
			_ = os.Remove(out)
			_ = os.Remove(sp.normalized)
			return err
		}
		sp.clip = clip.Path
		return nil
	})
	if err != nil {
		return err
	}
	o.dropFailures(ctx, p, failures)
	for i := range p.scenes {
		sp := &p.scenes[i]
		if sp.dropped || sp.clip == "" {
			continue
		}
		p.outcomes[sp.entry.Scene] = Outcome{
			Scene:    sp.entry.Scene,
			Status:   SceneRendered,
			Duration: sp.entry.Duration(),
			Held:     sp.entry.Held,
			Clip:     sp.clip,
		}
	}
	return nil
}

func (o *Orchestrator) concatenate(ctx context.Context, manifest, runSubtitles string, report *Report) error {
	music := o.optionalAsset(ctx, o.cfg.Music.Path, "background music")
	partial := PartialPath(report.Output)
	cmd := ConcatCommand(o.concat, manifest, music, partial, report.Total)
	if _, err := o.runner.Run(ctx, cmd); err != nil {
		_ = os.Remove(partial)
		return err
	}
	if !fileutil.NonEmpty(partial) {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrExternalTool, "assembly", "concatenate", fmt.Sprintf("ffmpeg produced no output at %s", partial), nil)
	}
	if fileutil.NonEmpty(report.Output) {
		logging.WithContext(ctx, o.logger).Info("replacing existing output",
			logging.String(logging.FieldEventType, "output_replaced"),
			logging.String("output", report.Output),
			logging.Alert("overwrite"),
		)
	}
	if err := fileutil.Publish(partial, report.Output); err != nil {
		return fmt.Errorf("publish output: %w", err)
	}
	sidecar := SubtitlePath(report.Output)
	if err := fileutil.CopyFileVerified(runSubtitles, sidecar); err != nil {
		return fmt.Errorf("publish subtitles: %w", err)
	}
	report.Subtitles = sidecar
	return nil
}

// forEach runs fn for every live scene on the bounded worker pool. Scene-level
// failures come back per index; a fatal failure cancels the remaining work
// and is returned as err.
func (o *Orchestrator) forEach(ctx context.Context, scenes []scenePlan, fn func(context.Context, *scenePlan) error) ([]error, error) {
	failures := make([]error, len(scenes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers())
	for i := range scenes {
		if scenes[i].dropped {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sceneCtx := services.WithScene(gctx, scenes[i].entry.Scene)
			err := fn(sceneCtx, &scenes[i])
			if err == nil {
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if services.SceneDisposition(err) == services.DispositionFatal {
				return err
			}
			failures[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return failures, nil
}

func (o *Orchestrator) dropFailures(ctx context.Context, p *runPlan, failures []error) {
	for i, failure := range failures {
		if failure == nil {
			continue
		}
		p.scenes[i].dropped = true
		p.skip(services.WithScene(ctx, p.scenes[i].entry.Scene), o.logger, p.scenes[i].entry.Scene, failure)
	}
}

func (o *Orchestrator) stage(ctx context.Context, stage Stage, fn stageexec.Func) error {
	return stageexec.Run(ctx, stageexec.Options{
		Logger:    o.logger,
		StageName: string(stage),
		Observer:  o.observe,
	}, fn)
}

func (o *Orchestrator) observe(stage string) {
	if o.observer != nil {
		o.observer(Stage(stage))
	}
}

func (o *Orchestrator) workers() int {
	return max(o.cfg.Workflow.Workers, 1)
}

// optionalAsset returns path when it names a usable file. A configured but
// missing asset is logged and dropped rather than failing the run.
func (o *Orchestrator) optionalAsset(ctx context.Context, path, kind string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if fileutil.NonEmpty(path) {
		return path
	}
	logging.WarnWithContext(logging.WithContext(ctx, o.logger), fmt.Sprintf("%s not found; continuing without it", kind), "asset_missing",
		logging.String("path", path),
		logging.String(logging.FieldErrorHint, "check the configured path"),
		logging.String(logging.FieldImpact, fmt.Sprintf("video rendered without %s", kind)),
	)
	return ""
}

func (o *Orchestrator) beginRun(ctx context.Context, output string) (string, bool) {
	if o.history != nil {
		id, err := o.history.BeginRun(ctx, output)
		if err == nil {
			return id, true
		}
		logging.WarnWithContext(o.logger, "run history unavailable", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions"),
			logging.String(logging.FieldImpact, "run will not appear in scrolla history"),
		)
	}
	return uuid.NewString(), false
}

func (o *Orchestrator) finishRun(ctx context.Context, report Report, runErr error) {
	ctx = context.WithoutCancel(ctx)
	logger := logging.WithContext(ctx, o.logger)
	for _, outcome := range report.Outcomes {
		err := o.history.RecordScene(ctx, history.Scene{
			RunID:           report.RunID,
			Number:          outcome.Scene,
			Status:          history.SceneStatus(outcome.Status),
			DurationSeconds: outcome.Duration.Seconds(),
			Held:            outcome.Held,
			Reason:          outcome.Reason,
		})
		if err != nil {
			logger.Warn("record scene outcome failed", logging.Int(logging.FieldScene, outcome.Scene), logging.Error(err))
		}
	}
	if err := o.history.FinishRun(ctx, report.RunID, report.Total.Seconds(), runErr); err != nil {
		logger.Warn("record run result failed", logging.Error(err))
	}
}

func resolveOutput(output string) (string, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return "", services.Wrap(services.ErrValidation, "assembly", "output", "output path is empty", nil)
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "assembly", "output", "resolve output path", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "assembly", "output", fmt.Sprintf("%s is a directory", abs), nil)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "output", "create output directory", err)
	}
	return abs, nil
}
