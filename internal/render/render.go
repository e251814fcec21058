package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"scrolla/internal/layout"
	"scrolla/internal/logging"
	"scrolla/internal/services"
	"scrolla/internal/toolexec"
)

// Settings holds run-wide encoder and overlay parameters.
type Settings struct {
	FFmpeg       string
	VideoCodec   string
	AudioCodec   string
	PixelFormat  string
	FrameRate    int
	FadeIn       time.Duration
	FadeOut      time.Duration
	WatermarkTop int
	Timeout      time.Duration
	Layout       layout.Config
}

// ClipRequest describes one scene clip.
type ClipRequest struct {
	Scene int
	Image string
	Audio string
	// Silent replaces the narration with generated silence of Duration.
	Silent    bool
	Duration  time.Duration
	Total     time.Duration
	Caption   layout.Block
	Watermark string
	Output    string
}

// Clip is a rendered scene.
type Clip struct {
	Scene    int
	Path     string
	Duration time.Duration
}

// Renderer builds and runs per-scene ffmpeg invocations.
type Renderer struct {
	settings Settings
	runner   *toolexec.Runner
	logger   *slog.Logger
}

// New constructs a Renderer. A nil runner uses os/exec.
func New(settings Settings, runner *toolexec.Runner, logger *slog.Logger) *Renderer {
	if strings.TrimSpace(settings.FFmpeg) == "" {
		settings.FFmpeg = "ffmpeg"
	}
	if settings.FrameRate <= 0 {
		settings.FrameRate = 30
	}
	if runner == nil {
		runner = toolexec.NewRunner()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{settings: settings, runner: runner, logger: logger}
}

// Render produces the clip described by req.
func (r *Renderer) Render(ctx context.Context, req ClipRequest) (Clip, error) {
	cmd, err := r.Command(req)
	if err != nil {
		return Clip{}, err
	}
	ctx = services.WithScene(ctx, req.Scene)
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("rendering clip",
		logging.String("output", req.Output),
		logging.Float64("duration_seconds", req.Duration.Seconds()),
		logging.Int("caption_lines", len(req.Caption.Lines)),
	)
	if _, err := r.runner.Run(ctx, cmd); err != nil {
		return Clip{}, err
	}
	if info, err := os.Stat(req.Output); err != nil || info.Size() == 0 {
		return Clip{}, services.Wrap(services.ErrExternalTool, "render", "verify", fmt.Sprintf("ffmpeg produced no output at %s", req.Output), err)
	}
	logger.Info("clip rendered", logging.Float64("duration_seconds", req.Duration.Seconds()))
	return Clip{Scene: req.Scene, Path: req.Output, Duration: req.Duration}, nil
}

// Command validates req and returns the ffmpeg invocation that renders it.
func (r *Renderer) Command(req ClipRequest) (toolexec.Command, error) {
	if err := validate(req); err != nil {
		return toolexec.Command{}, err
	}
	s := r.settings
	duration := FormatSeconds(req.Duration)

	args := []string{"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1", "-t", duration, "-i", req.Image,
	}
	inputs := []string{req.Image}
	if req.Silent {
		args = append(args, "-f", "lavfi", "-t", duration, "-i", "anullsrc=channel_layout=stereo:sample_rate=44100")
	} else {
		args = append(args, "-i", req.Audio)
		inputs = append(inputs, req.Audio)
	}
	if req.Watermark != "" {
		args = append(args, "-i", req.Watermark)
		inputs = append(inputs, req.Watermark)
	}

	args = append(args,
		"-filter_complex", r.FilterGraph(req),
		"-map", "[v]", "-map", "1:a",
		"-c:v", s.VideoCodec,
		"-pix_fmt", s.PixelFormat,
		"-r", strconv.Itoa(s.FrameRate),
		"-c:a", s.AudioCodec,
		"-shortest",
		"-avoid_negative_ts", "make_zero",
		req.Output,
	)
	return toolexec.Command{
		Tool:    "ffmpeg",
		Binary:  s.FFmpeg,
		Args:    args,
		Inputs:  inputs,
		Output:  req.Output,
		Timeout: s.Timeout,
	}, nil
}

// FilterGraph returns the filter_complex value for req. The graph always
// ends in the [v] label.
func (r *Renderer) FilterGraph(req ClipRequest) string {
	source := "[0]"
	var graph strings.Builder
	if req.Watermark != "" {
		fmt.Fprintf(&graph, "[0][2]overlay=(W-w)/2:%d[bg];", r.settings.WatermarkTop)
		source = "[bg]"
	}

	chain := CaptionFilters(r.settings.Layout, req.Caption, req.Duration)
	chain = append(chain, fadeFilters(r.settings.FadeIn, r.settings.FadeOut, req.Total)...)
	if len(chain) == 0 {
		chain = []string{"null"}
	}
	graph.WriteString(source)
	graph.WriteString(strings.Join(chain, ","))
	graph.WriteString("[v]")
	return graph.String()
}

// CaptionFilters returns one drawtext filter per caption line, each visible
// for the whole clip.
func CaptionFilters(cfg layout.Config, block layout.Block, duration time.Duration) []string {
	filters := make([]string, 0, len(block.Lines))
	for i, line := range block.Lines {
		var b strings.Builder
		b.WriteString("drawtext=text=")
		b.WriteString(EscapeDrawtext(line))
		if cfg.FontFile != "" {
			b.WriteString(":fontfile=")
			b.WriteString(escapeOptionValue(cfg.FontFile))
		} else if cfg.Font != "" {
			b.WriteString(":font=")
			b.WriteString(escapeOptionValue(cfg.Font))
		}
		fmt.Fprintf(&b, ":fontcolor=%s:fontsize=%d", cfg.FontColor, cfg.FontSize)
		if cfg.BorderWidth > 0 {
			fmt.Fprintf(&b, ":borderw=%s:bordercolor=%s", strconv.FormatFloat(cfg.BorderWidth, 'f', -1, 64), cfg.BorderColor)
		}
		if cfg.BoxColor != "" {
			fmt.Fprintf(&b, ":box=1:boxcolor=%s:boxborderw=5", cfg.BoxColor)
		}
		y := block.Top + i*(cfg.FontSize+cfg.LineSpacing)
		if i < len(block.LineY) {
			y = block.LineY[i]
		}
		fmt.Fprintf(&b, ":x=%s:y=%d:fix_bounds=true:enable='between(t,0,%s)'", cfg.XPositionExpr, y, FormatSeconds(duration))
		filters = append(filters, b.String())
	}
	return filters
}

// fadeFilters fades in from t=0 and schedules the fade-out against the
// run-wide total, not the scene length.
func fadeFilters(fadeIn, fadeOut, total time.Duration) []string {
	var filters []string
	if fadeIn > 0 {
		filters = append(filters, fmt.Sprintf("fade=t=in:st=0:d=%s", FormatSeconds(fadeIn)))
	}
	if fadeOut > 0 {
		start := max(total-fadeOut, 0)
		filters = append(filters, fmt.Sprintf("fade=t=out:st=%s:d=%s", FormatSeconds(start), FormatSeconds(fadeOut)))
	}
	return filters
}

func validate(req ClipRequest) error {
	switch {
	case req.Scene <= 0:
		return services.Wrap(services.ErrValidation, "render", "validate", fmt.Sprintf("scene number %d is not positive", req.Scene), nil)
	case strings.TrimSpace(req.Output) == "":
		return services.Wrap(services.ErrValidation, "render", "validate", "output path is empty", nil)
	case req.Duration <= 0:
		return services.Wrap(services.ErrValidation, "render", "validate", fmt.Sprintf("scene %d duration must be positive", req.Scene), nil)
	case req.Total <= 0:
		return services.Wrap(services.ErrValidation, "render", "validate", "total duration must be positive", nil)
	case strings.TrimSpace(req.Image) == "":
		return services.Wrap(services.ErrMissingAsset, "render", "validate", fmt.Sprintf("scene %d has no image", req.Scene), nil)
	case !req.Silent && strings.TrimSpace(req.Audio) == "":
		return services.Wrap(services.ErrMissingAsset, "render", "validate", fmt.Sprintf("scene %d has no audio", req.Scene), nil)
	}
	return nil
}

// FormatSeconds renders d in seconds with millisecond precision and no
// trailing zeros.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(float64(d.Milliseconds())/1000, 'f', -1, 64)
}
