package assembly

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func testSettings() ConcatSettings {
	return ConcatSettings{
		FFmpeg:       "ffmpeg",
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		AudioBitrate: "384k",
		PixelFormat:  "yuv420p",
		FadeIn:       time.Second,
		FadeOut:      500 * time.Millisecond,
		MusicVolume:  0.5,
	}
}

func TestConcatFilterGraph(t *testing.T) {
	total := 12200 * time.Millisecond
	cases := []struct {
		name  string
		music bool
		want  string
	}{
		{
			name: "narration only",
			want: "[0:v]fade=t=in:st=0:d=1,fade=t=out:st=11.7:d=0.5[v];[0:a]anull[a]",
		},
		{
			name:  "with music",
			music: true,
			want:  "[0:v]fade=t=in:st=0:d=1,fade=t=out:st=11.7:d=0.5[v];[1:a]volume=0.5[bg];[0:a][bg]amix=inputs=2:duration=first:dropout_transition=0[a]",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ConcatFilterGraph(testSettings(), total, tc.music); got != tc.want {
				t.Fatalf("graph =\n%s\nwant\n%s", got, tc.want)
			}
		})
	}
}

func TestConcatFilterGraphWithoutFades(t *testing.T) {
	s := testSettings()
	s.FadeIn, s.FadeOut = 0, 0
	if got := ConcatFilterGraph(s, time.Second, false); got != "[0:v]null[v];[0:a]anull[a]" {
		t.Fatalf("graph = %s", got)
	}
}

func TestConcatCommand(t *testing.T) {
	cmd := ConcatCommand(testSettings(), "/w/concat_list.txt", "/m/bg.mp3", "/o/final.partial.mp4", 4*time.Second)
	args := strings.Join(cmd.Args, " ")
	for _, want := range []string{
		"-f concat -safe 0 -i /w/concat_list.txt -i /m/bg.mp3",
		"-map [v] -map [a]",
		"-c:a aac -b:a 384k",
		"-shortest /o/final.partial.mp4",
	} {
		if !strings.Contains(args, want) {
			t.Fatalf("args missing %q: %s", want, args)
		}
	}
	if !slices.Equal(cmd.Inputs, []string{"/w/concat_list.txt", "/m/bg.mp3"}) || cmd.Output != "/o/final.partial.mp4" {
		t.Fatalf("unexpected command %+v", cmd)
	}

	noMusic := ConcatCommand(testSettings(), "/w/concat_list.txt", "", "/o/x.mp4", time.Second)
	if slices.Contains(noMusic.Args, "/m/bg.mp3") || len(noMusic.Inputs) != 1 {
		t.Fatalf("music input should be absent: %v", noMusic.Args)
	}
}

func TestWriteManifestEscapesQuotes(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "concat_list.txt")
	clips := []string{filepath.Join(dir, "scene_1.mp4"), filepath.Join(dir, "it's", "scene_3.mp4")}
	if err := WriteManifest(manifest, clips); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatal(err)
	}
	want := "file '" + clips[0] + "'\nfile '" + filepath.Join(dir, `it'\''s`, "scene_3.mp4") + "'\n"
	if string(data) != want {
		t.Fatalf("manifest =\n%s\nwant\n%s", data, want)
	}
}

func TestWriteManifestRejectsEmpty(t *testing.T) {
	if err := WriteManifest(filepath.Join(t.TempDir(), "m.txt"), nil); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}

func TestOutputSiblings(t *testing.T) {
	if got := PartialPath("/out/final.mp4"); got != "/out/final.partial.mp4" {
		t.Fatalf("PartialPath = %s", got)
	}
	if got := SubtitlePath("/out/final.mp4"); got != "/out/final.srt" {
		t.Fatalf("SubtitlePath = %s", got)
	}
}
