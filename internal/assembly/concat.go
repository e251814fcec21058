package assembly

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scrolla/internal/render"
	"scrolla/internal/services"
	"scrolla/internal/toolexec"
)

// ConcatSettings holds the final-mix parameters.
type ConcatSettings struct {
	FFmpeg       string
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	PixelFormat  string
	FadeIn       time.Duration
	FadeOut      time.Duration
	MusicVolume  float64
	Timeout      time.Duration
}

// WriteManifest writes a concat demuxer list naming clips in the given order.
func WriteManifest(path string, clips []string) error {
	if len(clips) == 0 {
		return services.Wrap(services.ErrNoScenesRendered, "assembly", "manifest", "no clips to list", nil)
	}
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			return fmt.Errorf("resolve clip path: %w", err)
		}
		b.WriteString("file '")
		b.WriteString(escapeManifestPath(abs))
		b.WriteString("'\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// escapeManifestPath closes the quote, emits an escaped quote and reopens,
// which is how the concat demuxer reads a literal single quote.
func escapeManifestPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

// PartialPath returns the temporary file the final mix is written to before
// it replaces output.
func PartialPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".partial" + ext
}

// SubtitlePath returns the sidecar caption file published next to output.
func SubtitlePath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".srt"
}

// ConcatFilterGraph returns the filter_complex value for the final mix. Video
// fades span total; music is attenuated and mixed under the narration for
// the narration's length.
func ConcatFilterGraph(s ConcatSettings, total time.Duration, withMusic bool) string {
	var video []string
	if s.FadeIn > 0 {
		video = append(video, fmt.Sprintf("fade=t=in:st=0:d=%s", render.FormatSeconds(s.FadeIn)))
	}
	if s.FadeOut > 0 {
		start := max(total-s.FadeOut, 0)
		video = append(video, fmt.Sprintf("fade=t=out:st=%s:d=%s", render.FormatSeconds(start), render.FormatSeconds(s.FadeOut)))
	}
	if len(video) == 0 {
		video = []string{"null"}
	}
	graph := "[0:v]" + strings.Join(video, ",") + "[v];"
	if withMusic {
		volume := strconv.FormatFloat(s.MusicVolume, 'f', -1, 64)
		graph += "[1:a]volume=" + volume + "[bg];[0:a][bg]amix=inputs=2:duration=first:dropout_transition=0[a]"
	} else {
		graph += "[0:a]anull[a]"
	}
	return graph
}

// ConcatCommand builds the ffmpeg invocation that joins the manifest's clips
// into partial, optionally mixing music.
func ConcatCommand(s ConcatSettings, manifest, music, partial string, total time.Duration) toolexec.Command {
	args := []string{"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", manifest,
	}
	inputs := []string{manifest}
	if music != "" {
		args = append(args, "-i", music)
		inputs = append(inputs, music)
	}
	args = append(args,
		"-filter_complex", ConcatFilterGraph(s, total, music != ""),
		"-map", "[v]", "-map", "[a]",
		"-c:v", s.VideoCodec,
		"-c:a", s.AudioCodec,
		"-b:a", s.AudioBitrate,
		"-pix_fmt", s.PixelFormat,
		"-shortest",
		partial,
	)
	return toolexec.Command{
		Tool:    "ffmpeg",
		Binary:  s.FFmpeg,
		Args:    args,
		Inputs:  inputs,
		Output:  partial,
		Timeout: s.Timeout,
	}
}
