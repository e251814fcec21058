package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCanvas(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCanvas() error {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("canvas dimensions must be positive (got %dx%d)", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.Width%2 != 0 || c.Canvas.Height%2 != 0 {
		return fmt.Errorf("canvas dimensions must be even for %s (got %dx%d)", c.Encoding.PixelFormat, c.Canvas.Width, c.Canvas.Height)
	}
	return nil
}

func (c *Config) validateCaptions() error {
	switch c.Captions.VerticalAlignment {
	case "top", "center", "bottom":
	default:
		return fmt.Errorf("captions.vertical_alignment must be top, center, or bottom (got %q)", c.Captions.VerticalAlignment)
	}
	if c.Captions.FontSize <= 0 {
		return errors.New("captions.font_size must be positive")
	}
	if c.Captions.LineSpacing < 0 {
		return errors.New("captions.line_spacing must be >= 0")
	}
	if c.Captions.Margin < 0 || c.Captions.BottomGap < 0 || c.Captions.SidePadding < 0 {
		return errors.New("captions.margin, captions.bottom_gap and captions.side_padding must be >= 0")
	}
	if c.Captions.BorderWidth < 0 {
		return errors.New("captions.border_width must be >= 0")
	}
	if 2*c.Captions.SidePadding >= c.Canvas.Width {
		return fmt.Errorf("captions.side_padding %d leaves no room on a %d pixel canvas", c.Captions.SidePadding, c.Canvas.Width)
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if strings.TrimSpace(c.Encoding.VideoCodec) == "" {
		return errors.New("encoding.video_codec must be set")
	}
	if strings.TrimSpace(c.Encoding.AudioCodec) == "" {
		return errors.New("encoding.audio_codec must be set")
	}
	if strings.TrimSpace(c.Encoding.PixelFormat) == "" {
		return errors.New("encoding.pixel_format must be set")
	}
	if c.Encoding.FrameRate <= 0 {
		return errors.New("encoding.frame_rate must be positive")
	}
	if c.Encoding.FadeInSeconds < 0 || c.Encoding.FadeOutSeconds < 0 {
		return errors.New("encoding fade durations must be >= 0")
	}
	if c.Encoding.ImageJPEGQuality < 1 || c.Encoding.ImageJPEGQuality > 100 {
		return errors.New("encoding.image_jpeg_quality must be between 1 and 100")
	}
	if c.Music.Volume < 0 {
		return errors.New("music.volume must be >= 0")
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.ProbeTimeoutSeconds <= 0 {
		return errors.New("tools.probe_timeout_seconds must be positive")
	}
	if c.Tools.RenderTimeoutSeconds <= 0 {
		return errors.New("tools.render_timeout_seconds must be positive")
	}
	if c.Tools.ConcatTimeoutSeconds <= 0 {
		return errors.New("tools.concat_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 {
		return errors.New("workflow.workers must be at least 1")
	}
	switch c.Workflow.UnknownDurationPolicy {
	case "skip":
	case "hold":
		if c.Workflow.HoldSeconds <= 0 {
			return errors.New("workflow.hold_seconds must be positive when unknown_duration_policy is hold")
		}
	default:
		return fmt.Errorf("workflow.unknown_duration_policy must be skip or hold (got %q)", c.Workflow.UnknownDurationPolicy)
	}
	if c.Workflow.MinFreeGiB < 0 {
		return errors.New("workflow.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}
