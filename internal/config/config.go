package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Canvas describes the fixed output frame every scene is letterboxed onto.
type Canvas struct {
	Width      int    `toml:"width"`
	Height     int    `toml:"height"`
	Background string `toml:"background"`
}

// Captions contains caption overlay layout settings.
type Captions struct {
	Enabled           bool    `toml:"enabled"`
	Font              string  `toml:"font"`
	FontFile          string  `toml:"font_file"`
	FontSize          int     `toml:"font_size"`
	FontColor         string  `toml:"font_color"`
	BorderWidth       float64 `toml:"border_width"`
	BorderColor       string  `toml:"border_color"`
	BoxColor          string  `toml:"box_color"`
	XPosition         string  `toml:"x_position"`
	SidePadding       int     `toml:"side_padding"`
	BottomGap         int     `toml:"bottom_gap"`
	Margin            int     `toml:"margin"`
	LineSpacing       int     `toml:"line_spacing"`
	VerticalAlignment string  `toml:"vertical_alignment"`
}

// Watermark configures the optional fixed-path watermark image.
type Watermark struct {
	Path      string `toml:"path"`
	TopOffset int    `toml:"top_offset"`
}

// Music configures the optional background-music bed.
type Music struct {
	Path   string  `toml:"path"`
	Volume float64 `toml:"volume"`
}

// Encoding contains transcoder output settings.
type Encoding struct {
	VideoCodec       string  `toml:"video_codec"`
	AudioCodec       string  `toml:"audio_codec"`
	AudioBitrate     string  `toml:"audio_bitrate"`
	PixelFormat      string  `toml:"pixel_format"`
	FrameRate        int     `toml:"frame_rate"`
	FadeInSeconds    float64 `toml:"fade_in_seconds"`
	FadeOutSeconds   float64 `toml:"fade_out_seconds"`
	ImageJPEGQuality int     `toml:"image_jpeg_quality"`
}

// Tools contains external binary names and their wall-clock limits.
type Tools struct {
	FFmpeg               string `toml:"ffmpeg"`
	FFprobe              string `toml:"ffprobe"`
	ProbeTimeoutSeconds  int    `toml:"probe_timeout_seconds"`
	RenderTimeoutSeconds int    `toml:"render_timeout_seconds"`
	ConcatTimeoutSeconds int    `toml:"concat_timeout_seconds"`
}

// Workflow contains run-level policy.
type Workflow struct {
	Workers               int     `toml:"workers"`
	UnknownDurationPolicy string  `toml:"unknown_duration_policy"`
	HoldSeconds           float64 `toml:"hold_seconds"`
	KeepIntermediates     bool    `toml:"keep_intermediates"`
	MinFreeGiB            int     `toml:"min_free_gib"`
	History               bool    `toml:"history"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scrolla.
//
// Configuration sections by subsystem:
//   - Paths: work, output, log and state directories
//   - Canvas: target frame size and letterbox colour
//   - Captions: caption overlay layout
//   - Watermark / Music: optional fixed-path assets
//   - Encoding: codec, bitrate, frame rate and fades
//   - Tools: ffmpeg/ffprobe binaries and timeouts
//   - Workflow: worker count and unknown-duration policy
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Canvas    Canvas    `toml:"canvas"`
	Captions  Captions  `toml:"captions"`
	Watermark Watermark `toml:"watermark"`
	Music     Music     `toml:"music"`
	Encoding  Encoding  `toml:"encoding"`
	Tools     Tools     `toml:"tools"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scrolla/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scrolla.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for rendering and concatenation.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFmpeg); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable used for duration probing.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Tools.FFprobe); bin != "" {
		return bin
	}
	return "ffprobe"
}

// ProbeTimeout returns the wall-clock limit for a single ffprobe call.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Tools.ProbeTimeoutSeconds) * time.Second
}

// RenderTimeout returns the wall-clock limit for rendering one scene clip.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Tools.RenderTimeoutSeconds) * time.Second
}

// ConcatTimeout returns the wall-clock limit for the final concatenation pass.
func (c *Config) ConcatTimeout() time.Duration {
	return time.Duration(c.Tools.ConcatTimeoutSeconds) * time.Second
}

// HistoryPath returns the run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
