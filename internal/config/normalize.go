package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeAssets(); err != nil {
		return err
	}
	c.normalizeCaptions()
	c.normalizeTools()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) applyEnvOverrides() {
	if value, ok := os.LookupEnv("SCROLLA_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFmpeg = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("SCROLLA_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFprobe = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("SCROLLA_WORK_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WorkDir = strings.TrimSpace(value)
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAssets() error {
	var err error
	if c.Watermark.Path, err = expandPath(strings.TrimSpace(c.Watermark.Path)); err != nil {
		return fmt.Errorf("watermark.path: %w", err)
	}
	if c.Music.Path, err = expandPath(strings.TrimSpace(c.Music.Path)); err != nil {
		return fmt.Errorf("music.path: %w", err)
	}
	if c.Captions.FontFile, err = expandPath(strings.TrimSpace(c.Captions.FontFile)); err != nil {
		return fmt.Errorf("captions.font_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeCaptions() {
	c.Captions.VerticalAlignment = strings.ToLower(strings.TrimSpace(c.Captions.VerticalAlignment))
	if c.Captions.VerticalAlignment == "" {
		c.Captions.VerticalAlignment = defaultCaptionAlignment
	}
	if strings.TrimSpace(c.Captions.XPosition) == "" {
		c.Captions.XPosition = defaultCaptionXPosition
	}
	if strings.TrimSpace(c.Canvas.Background) == "" {
		c.Canvas.Background = defaultCanvasBackground
	}
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpegBinary
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobeBinary
	}
	c.Encoding.AudioBitrate = strings.TrimSpace(c.Encoding.AudioBitrate)
	if c.Encoding.AudioBitrate == "" {
		c.Encoding.AudioBitrate = defaultAudioBitrate
	}
	if c.Encoding.ImageJPEGQuality == 0 {
		c.Encoding.ImageJPEGQuality = defaultImageJPEGQuality
	}
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.UnknownDurationPolicy = strings.ToLower(strings.TrimSpace(c.Workflow.UnknownDurationPolicy))
	if c.Workflow.UnknownDurationPolicy == "" {
		c.Workflow.UnknownDurationPolicy = defaultUnknownDurationPolicy
	}
	if c.Workflow.Workers == 0 {
		c.Workflow.Workers = defaultWorkers
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
