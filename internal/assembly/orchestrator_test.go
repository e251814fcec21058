package assembly_test

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"scrolla/internal/assembly"
	"scrolla/internal/config"
	"scrolla/internal/history"
	"scrolla/internal/script"
	"scrolla/internal/services"
	"scrolla/internal/staging"
	"scrolla/internal/subtitles"
	"scrolla/internal/testsupport"
	"scrolla/internal/toolexec"
)

// concatStderr is what ffmpeg prints when the mix filter graph cannot be built.
const concatStderr = "[AVFilterGraph] No such filter: 'amix'\nError initializing complex filters.\nConversion failed!\n"

type exitErr struct{ code int }

func (e exitErr) Error() string { return fmt.Sprintf("exit status %d", e.code) }
func (e exitErr) ExitCode() int { return e.code }

// mediaExecutor stands in for ffprobe and ffmpeg. ffprobe answers from a
// table keyed by audio file name; ffmpeg writes its final argument.
type mediaExecutor struct {
	mu         sync.Mutex
	durations  map[string]string
	failClips  map[string]bool
	failConcat bool
	calls      [][]string
}

func (m *mediaExecutor) Run(_ context.Context, binary string, args []string, stdout, stderr io.Writer) error {
	m.mu.Lock()
	m.calls = append(m.calls, append([]string{binary}, args...))
	m.mu.Unlock()

	target := args[len(args)-1]
	if strings.Contains(filepath.Base(binary), "ffprobe") {
		out, ok := m.durations[filepath.Base(target)]
		if !ok {
			_, _ = io.WriteString(stderr, "Invalid data found when processing input\n")
			return exitErr{1}
		}
		_, _ = io.WriteString(stdout, out)
		return nil
	}
	if slices.Contains(args, "concat") {
		if m.failConcat {
			_, _ = io.WriteString(stderr, concatStderr)
			return exitErr{1}
		}
	} else if m.failClips[filepath.Base(target)] {
		_, _ = io.WriteString(stderr, "Error initializing filter 'drawtext'\n")
		return exitErr{1}
	}
	return os.WriteFile(target, []byte("media:"+filepath.Base(target)), 0o644)
}

func (m *mediaExecutor) ffmpegCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [][]string
	for _, call := range m.calls {
		if !strings.Contains(filepath.Base(call[0]), "ffprobe") {
			out = append(out, call)
		}
	}
	return out
}

func (m *mediaExecutor) concatCalls() int {
	n := 0
	for _, call := range m.ffmpegCalls() {
		if slices.Contains(call, "concat") {
			n++
		}
	}
	return n
}

type fixture struct {
	cfg    *config.Config
	job    assembly.Job
	exec   *mediaExecutor
	stages []assembly.Stage
}

// newFixture writes an image and a narration file for every scene listed
// in durations. A blank duration omits the narration entry from ffprobe.
func newFixture(t *testing.T, durations map[int]string, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Canvas.Width = 108
	cfg.Canvas.Height = 192
	cfg.Captions.FontSize = 10
	cfg.Captions.SidePadding = 4

	base := testsupport.BaseDir(cfg)
	assets := script.Assets{AudioDir: filepath.Join(base, "audio"), ImageDir: filepath.Join(base, "images")}
	exec := &mediaExecutor{durations: map[string]string{}, failClips: map[string]bool{}}

	var scenes []script.Scene
	for n := 1; n <= len(durations); n++ {
		d, ok := durations[n]
		if !ok {
			t.Fatalf("durations must be contiguous from 1")
		}
		scenes = append(scenes, script.Scene{Number: n, Text: fmt.Sprintf("Scene %d narration text", n)})
		audio := filepath.Join(assets.AudioDir, fmt.Sprintf("scene%d.mp3", n))
		testsupport.WriteFile(t, audio, 64)
		if d != "" {
			exec.durations[filepath.Base(audio)] = d + "\n"
		}
		testsupport.WriteImage(t, filepath.Join(assets.ImageDir, fmt.Sprintf("image%d.png", n)), 40, 30, color.RGBA{R: 200, A: 255})
	}
	return &fixture{
		cfg:  cfg,
		exec: exec,
		job: assembly.Job{
			Script: script.Script{Scenes: scenes},
			Assets: assets,
			Output: filepath.Join(cfg.Paths.OutputDir, "final.mp4"),
		},
	}
}

func (f *fixture) run(t *testing.T, opts ...assembly.Option) (assembly.Report, error) {
	t.Helper()
	opts = append([]assembly.Option{
		assembly.WithExecutor(f.exec),
		assembly.WithObserver(func(s assembly.Stage) { f.stages = append(f.stages, s) }),
	}, opts...)
	orch, err := assembly.New(f.cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch.Run(context.Background(), f.job)
}

func secs(v float64) time.Duration {
	return subtitles.Milliseconds(v)
}

func TestRunAssemblesScenesInOrder(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0", 2: "3.2", 3: "5.0"}, testsupport.WithWorkers(3))
	f.cfg.Workflow.KeepIntermediates = true

	report, err := f.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Total != secs(12.2) {
		t.Fatalf("total = %v, want 12.2s", report.Total)
	}
	wantStarts := []time.Duration{0, secs(4), secs(7.2)}
	for i, entry := range report.Timeline.Entries {
		if entry.Start != wantStarts[i] || entry.Index != i+1 || entry.Scene != i+1 {
			t.Fatalf("entry %d = %+v", i, entry)
		}
	}

	wantStages := []assembly.Stage{
		assembly.StageNormalizeImages, assembly.StageRenderScenes, assembly.StageBuildManifest,
		assembly.StageConcatenate, assembly.StageCleanup, assembly.StageDone,
	}
	if !slices.Equal(f.stages, wantStages) {
		t.Fatalf("stages = %v, want %v", f.stages, wantStages)
	}

	manifest, err := os.ReadFile(filepath.Join(report.WorkDir, staging.ManifestName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(manifest)), "\n")
	if len(lines) != 3 {
		t.Fatalf("manifest lines = %d: %s", len(lines), manifest)
	}
	for i, line := range lines {
		want := fmt.Sprintf("scene_%d.mp4'", i+1)
		if !strings.HasPrefix(line, "file '/") || !strings.HasSuffix(line, want) {
			t.Fatalf("manifest line %d = %q", i, line)
		}
	}

	if data, err := os.ReadFile(report.Output); err != nil || string(data) != "media:final.partial.mp4" {
		t.Fatalf("output not published: %q %v", data, err)
	}
	if _, err := os.Stat(assembly.PartialPath(report.Output)); !os.IsNotExist(err) {
		t.Fatal("partial output should have been renamed away")
	}

	srt, err := os.Open(report.Subtitles)
	if err != nil {
		t.Fatalf("open subtitles: %v", err)
	}
	defer srt.Close()
	entries, err := subtitles.ParseSRT(srt)
	if err != nil {
		t.Fatalf("parse subtitles: %v", err)
	}
	if len(entries) != 3 || entries[2].End != secs(12.2) {
		t.Fatalf("unexpected subtitle entries %+v", entries)
	}
	if len(report.Rendered()) != 3 || len(report.Skipped()) != 0 {
		t.Fatalf("unexpected outcomes %+v", report.Outcomes)
	}
}

func TestRunSkipsSceneWithMissingImage(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0", 2: "3.2", 3: "5.0"})
	if err := os.Remove(filepath.Join(f.job.Assets.ImageDir, "image2.png")); err != nil {
		t.Fatal(err)
	}
	f.cfg.Workflow.KeepIntermediates = true

	report, err := f.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Timeline.Scenes(); !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("rendered scenes = %v", got)
	}
	third, _ := report.Timeline.Entry(3)
	if third.Start != secs(4) || third.Index != 2 {
		t.Fatalf("scene 3 entry = %+v, want start at scene 1's end", third)
	}
	if report.Total != secs(9) {
		t.Fatalf("total = %v, want 9s", report.Total)
	}
	skipped := report.Skipped()
	if len(skipped) != 1 || skipped[0].Scene != 2 || skipped[0].Reason != "missing_asset" {
		t.Fatalf("skipped = %+v", skipped)
	}
	manifest, err := os.ReadFile(filepath.Join(report.WorkDir, staging.ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(manifest), "scene_2.mp4") {
		t.Fatalf("manifest should not list scene 2: %s", manifest)
	}
}

func TestRunSkipsSceneWithMissingAudio(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0", 2: "3.2", 3: "5.0"})
	if err := os.Remove(filepath.Join(f.job.Assets.AudioDir, "scene2.mp3")); err != nil {
		t.Fatal(err)
	}
	f.cfg.Workflow.KeepIntermediates = true

	report, err := f.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Timeline.Scenes(); !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("rendered scenes = %v", got)
	}
	third, _ := report.Timeline.Entry(3)
	if third.Start != secs(4) || third.End != secs(9) || third.Index != 2 {
		t.Fatalf("scene 3 entry = %+v, want [4s,9s) as entry 2", third)
	}
	skipped := report.Skipped()
	if len(skipped) != 1 || skipped[0].Scene != 2 || skipped[0].Reason != "missing_asset" {
		t.Fatalf("skipped = %+v", skipped)
	}
	if !errors.Is(skipped[0].Err, services.ErrMissingAsset) {
		t.Fatalf("skip error = %v", skipped[0].Err)
	}

	manifest, err := os.ReadFile(filepath.Join(report.WorkDir, staging.ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(manifest)), "\n")
	if len(lines) != 2 || !strings.HasSuffix(lines[0], "scene_1.mp4'") || !strings.HasSuffix(lines[1], "scene_3.mp4'") {
		t.Fatalf("manifest should list scenes 1 and 3 in order: %s", manifest)
	}
	for _, call := range f.exec.calls {
		if strings.HasSuffix(call[len(call)-1], "scene2.mp3") {
			t.Fatalf("missing narration should not reach ffprobe: %v", call)
		}
	}
}

func TestRunSkipsUnknownDuration(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0", 2: "N/A", 3: "5.0"})

	report, err := f.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := report.Timeline.Scenes(); !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("rendered scenes = %v", got)
	}
	skipped := report.Skipped()
	if len(skipped) != 1 || skipped[0].Reason != "unknown_duration" || !errors.Is(skipped[0].Err, services.ErrUnknownDuration) {
		t.Fatalf("skipped = %+v", skipped)
	}
	if report.WorkDir != "" {
		t.Fatalf("work dir should be cleaned after success, got %s", report.WorkDir)
	}
}

func TestRunHoldsUnknownDurationOverSilence(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0", 2: "", 3: "5.0"}, testsupport.WithHoldPolicy(3))
	f.job.Script.Scenes[1].Timeframe = 2.5
	store := testsupport.MustOpenHistory(t, f.cfg)

	report, err := f.run(t, assembly.WithHistory(store))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != secs(11.5) {
		t.Fatalf("total = %v, want 11.5s", report.Total)
	}
	held, ok := report.Timeline.Entry(2)
	if !ok || !held.Held || held.Duration() != secs(2.5) {
		t.Fatalf("scene 2 entry = %+v", held)
	}

	var silent int
	for _, call := range f.exec.ffmpegCalls() {
		joined := strings.Join(call, " ")
		if strings.Contains(joined, "anullsrc") {
			silent++
			if !strings.HasSuffix(joined, "scene_2.mp4") {
				t.Fatalf("only scene 2 should render silent: %s", joined)
			}
		}
	}
	if silent != 1 {
		t.Fatalf("silent renders = %d, want 1", silent)
	}

	scenes, err := store.RunScenes(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("RunScenes: %v", err)
	}
	if len(scenes) != 3 {
		t.Fatalf("unexpected scenes %+v", scenes)
	}
	for _, scene := range scenes {
		if scene.Status != history.SceneRendered || scene.Held != (scene.Number == 2) {
			t.Fatalf("scene %d recorded as %+v", scene.Number, scene)
		}
	}
	if scenes[1].DurationSeconds != 2.5 {
		t.Fatalf("held scene seconds = %v", scenes[1].DurationSeconds)
	}
}

func TestRunSkipsSceneWhoseRenderFails(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0", 2: "3.2", 3: "5.0"}, testsupport.WithWorkers(2))
	f.exec.failClips["scene_2.mp4"] = true

	report, err := f.run(t)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Total != secs(9) {
		t.Fatalf("total = %v, want sum of rendered durations 9s", report.Total)
	}
	skipped := report.Skipped()
	if len(skipped) != 1 || skipped[0].Scene != 2 || skipped[0].Reason != "tool_failure" {
		t.Fatalf("skipped = %+v", skipped)
	}
	if !strings.Contains(skipped[0].Err.Error(), "drawtext") {
		t.Fatalf("skip error should carry ffmpeg stderr: %v", skipped[0].Err)
	}
}

func TestRunFailsWhenNothingRenders(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0", 2: "3.2"})
	f.exec.failClips["scene_1.mp4"] = true
	f.exec.failClips["scene_2.mp4"] = true

	report, err := f.run(t)
	if !errors.Is(err, services.ErrNoScenesRendered) {
		t.Fatalf("expected ErrNoScenesRendered, got %v", err)
	}
	if f.exec.concatCalls() != 0 {
		t.Fatal("concat must not run without clips")
	}
	if report.WorkDir == "" {
		t.Fatal("work dir should be reported")
	}
	if _, statErr := os.Stat(report.WorkDir); statErr != nil {
		t.Fatalf("intermediates should be retained on failure: %v", statErr)
	}
	if slices.Contains(f.stages, assembly.StageConcatenate) {
		t.Fatalf("stages = %v", f.stages)
	}
}

func TestRunEmptyScriptRendersNothing(t *testing.T) {
	f := newFixture(t, map[int]string{})
	_, err := f.run(t)
	if !errors.Is(err, services.ErrNoScenesRendered) {
		t.Fatalf("expected ErrNoScenesRendered, got %v", err)
	}
}

func TestConcatFailurePreservesPriorOutput(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0"})
	f.exec.failConcat = true
	if err := os.WriteFile(f.job.Output, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := f.run(t)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Conversion failed!") {
		t.Fatalf("error should carry stderr: %v", err)
	}
	if detail := toolexec.Diagnostics(err); !strings.Contains(detail, "No such filter: 'amix'") {
		t.Fatalf("diagnostics should keep the leading stderr lines, got %q", detail)
	}
	data, readErr := os.ReadFile(f.job.Output)
	if readErr != nil || string(data) != "previous" {
		t.Fatalf("prior output clobbered: %q %v", data, readErr)
	}
	if _, statErr := os.Stat(assembly.PartialPath(f.job.Output)); !os.IsNotExist(statErr) {
		t.Fatal("partial output should be removed on failure")
	}
	if _, statErr := os.Stat(filepath.Join(report.WorkDir, staging.ManifestName)); statErr != nil {
		t.Fatalf("manifest should be retained on failure: %v", statErr)
	}
}

func TestRunRefusesLockedOutput(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0"})
	held := flock.New(f.job.Output + ".lock")
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: %v", err)
	}
	defer held.Unlock()

	_, err = f.run(t)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for locked output, got %v", err)
	}
	if len(f.exec.calls) != 0 {
		t.Fatal("no tool should run while the output is locked")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0"})
	orch, err := assembly.New(f.cfg, assembly.WithExecutor(f.exec))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := orch.Run(ctx, f.job); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0", 2: "N/A"})
	store := testsupport.MustOpenHistory(t, f.cfg)

	report, err := f.run(t, assembly.WithHistory(store))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if run.Status != history.RunSucceeded || run.TotalSeconds != 4 || run.OutputPath != report.Output {
		t.Fatalf("unexpected run %+v", run)
	}
	scenes, err := store.RunScenes(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("RunScenes: %v", err)
	}
	if len(scenes) != 2 || scenes[0].Status != history.SceneRendered || scenes[1].Status != history.SceneSkipped || scenes[1].Reason != "unknown_duration" {
		t.Fatalf("unexpected scenes %+v", scenes)
	}
}

func TestRunRecordsFailedRun(t *testing.T) {
	f := newFixture(t, map[int]string{1: "4.0"})
	f.exec.failConcat = true
	store := testsupport.MustOpenHistory(t, f.cfg)

	report, err := f.run(t, assembly.WithHistory(store))
	if err == nil {
		t.Fatal("expected concat failure")
	}
	run, getErr := store.GetRun(context.Background(), report.RunID)
	if getErr != nil {
		t.Fatalf("GetRun: %v", getErr)
	}
	if run.Status != history.RunFailed || run.Error == "" {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.ErrorDetail != strings.TrimSpace(concatStderr) {
		t.Fatalf("error detail = %q, want full ffmpeg stderr", run.ErrorDetail)
	}
}

func TestNewRejectsBadPolicy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.UnknownDurationPolicy = "guess"
	if _, err := assembly.New(cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
