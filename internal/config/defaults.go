package config

const (
	defaultWorkDir               = "~/.local/share/scrolla/work"
	defaultOutputDir             = "~/.local/share/scrolla/output"
	defaultLogDir                = "~/.local/share/scrolla/logs"
	defaultStateDir              = "~/.local/share/scrolla/state"
	defaultCanvasWidth           = 1080
	defaultCanvasHeight          = 1920
	defaultCanvasBackground      = "black"
	defaultCaptionFont           = "Arial"
	defaultCaptionFontSize       = 50
	defaultCaptionFontColor      = "white"
	defaultCaptionBorderWidth    = 1.2
	defaultCaptionBorderColor    = "darkgray"
	defaultCaptionBoxColor       = "black@0.5"
	defaultCaptionXPosition      = "(w-tw)/2"
	defaultCaptionSidePadding    = 20
	defaultCaptionBottomGap      = 60
	defaultCaptionMargin         = 30
	defaultCaptionLineSpacing    = 20
	defaultCaptionAlignment      = "bottom"
	defaultWatermarkTopOffset    = 30
	defaultMusicVolume           = 0.5
	defaultVideoCodec            = "libx264"
	defaultAudioCodec            = "aac"
	defaultAudioBitrate          = "384k"
	defaultPixelFormat           = "yuv420p"
	defaultFrameRate             = 30
	defaultFadeInSeconds         = 1.0
	defaultFadeOutSeconds        = 0.5
	defaultImageJPEGQuality      = 95
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultProbeTimeoutSeconds   = 30
	defaultRenderTimeoutSeconds  = 600
	defaultConcatTimeoutSeconds  = 1800
	defaultWorkers               = 1
	defaultUnknownDurationPolicy = "skip"
	defaultHoldSeconds           = 3.0
	defaultMinFreeGiB            = 2
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Canvas: Canvas{
			Width:      defaultCanvasWidth,
			Height:     defaultCanvasHeight,
			Background: defaultCanvasBackground,
		},
		Captions: Captions{
			Enabled:           true,
			Font:              defaultCaptionFont,
			FontSize:          defaultCaptionFontSize,
			FontColor:         defaultCaptionFontColor,
			BorderWidth:       defaultCaptionBorderWidth,
			BorderColor:       defaultCaptionBorderColor,
			BoxColor:          defaultCaptionBoxColor,
			XPosition:         defaultCaptionXPosition,
			SidePadding:       defaultCaptionSidePadding,
			BottomGap:         defaultCaptionBottomGap,
			Margin:            defaultCaptionMargin,
			LineSpacing:       defaultCaptionLineSpacing,
			VerticalAlignment: defaultCaptionAlignment,
		},
		Watermark: Watermark{
			TopOffset: defaultWatermarkTopOffset,
		},
		Music: Music{
			Volume: defaultMusicVolume,
		},
		Encoding: Encoding{
			VideoCodec:       defaultVideoCodec,
			AudioCodec:       defaultAudioCodec,
			AudioBitrate:     defaultAudioBitrate,
			PixelFormat:      defaultPixelFormat,
			FrameRate:        defaultFrameRate,
			FadeInSeconds:    defaultFadeInSeconds,
			FadeOutSeconds:   defaultFadeOutSeconds,
			ImageJPEGQuality: defaultImageJPEGQuality,
		},
		Tools: Tools{
			FFmpeg:               defaultFFmpegBinary,
			FFprobe:              defaultFFprobeBinary,
			ProbeTimeoutSeconds:  defaultProbeTimeoutSeconds,
			RenderTimeoutSeconds: defaultRenderTimeoutSeconds,
			ConcatTimeoutSeconds: defaultConcatTimeoutSeconds,
		},
		Workflow: Workflow{
			Workers:               defaultWorkers,
			UnknownDurationPolicy: defaultUnknownDurationPolicy,
			HoldSeconds:           defaultHoldSeconds,
			MinFreeGiB:            defaultMinFreeGiB,
			History:               true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
