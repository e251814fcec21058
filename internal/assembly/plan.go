package assembly

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"scrolla/internal/logging"
	"scrolla/internal/media/ffprobe"
	"scrolla/internal/script"
	"scrolla/internal/services"
	"scrolla/internal/subtitles"
	"scrolla/internal/toolexec"
)

// SceneStatus is the final state of one scene in a run.
type SceneStatus string

const (
	SceneRendered SceneStatus = "rendered"
	SceneSkipped  SceneStatus = "skipped"
)

// Outcome records what happened to one scene.
type Outcome struct {
	Scene    int
	Status   SceneStatus
	Duration time.Duration
	// Held marks a scene rendered for a fallback length over silence.
	Held   bool
	Clip   string
	Reason string
	Err    error
}

// Report summarizes a run. It is returned populated as far as the run got,
// even when Run fails.
type Report struct {
	RunID     string
	Output    string
	Subtitles string
	// WorkDir is empty once intermediates have been cleaned up.
	WorkDir string
	// Planned is the caption timeline before any scene failed to render.
	Planned subtitles.Timeline
	// Timeline covers exactly the rendered scenes and matches the output.
	Timeline subtitles.Timeline
	Total    time.Duration
	Outcomes []Outcome
}

// Rendered returns the outcomes of scenes present in the output.
func (r Report) Rendered() []Outcome {
	return r.filter(SceneRendered)
}

// Skipped returns the outcomes of scenes left out of the output.
func (r Report) Skipped() []Outcome {
	return r.filter(SceneSkipped)
}

func (r Report) filter(status SceneStatus) []Outcome {
	var out []Outcome
	for _, outcome := range r.Outcomes {
		if outcome.Status == status {
			out = append(out, outcome)
		}
	}
	return out
}

type scenePlan struct {
	entry      subtitles.Entry
	image      string
	audio      string
	normalized string
	clip       string
	dropped    bool
}

type runPlan struct {
	timeline subtitles.Timeline
	scenes   []scenePlan
	outcomes map[int]Outcome
}

func newRunPlan() *runPlan {
	return &runPlan{outcomes: make(map[int]Outcome)}
}

// plan resolves assets and probes narration for every scene, then lays out
// the caption timeline. Scenes are visited in ascending number so the
// timeline cursor only ever moves forward.
func (o *Orchestrator) plan(ctx context.Context, job Job, p *runPlan) error {
	scenes := append([]script.Scene(nil), job.Script.Scenes...)
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].Number < scenes[j].Number })

	known := make(map[int]float64, len(scenes))
	probes := make(map[int]ffprobe.Duration, len(scenes))
	images := make(map[int]string, len(scenes))
	audio := make(map[int]string, len(scenes))
	texts := make([]subtitles.SceneText, 0, len(scenes))

	for _, scene := range scenes {
		if err := ctx.Err(); err != nil {
			return err
		}
		sceneCtx := services.WithScene(ctx, scene.Number)
		image, err := job.Assets.Image(scene.Number)
		if err != nil {
			p.skip(sceneCtx, o.logger, scene.Number, err)
			continue
		}
		narration, err := job.Assets.Audio(scene.Number)
		if err != nil {
			p.skip(sceneCtx, o.logger, scene.Number, err)
			continue
		}
		d := o.prober.Duration(sceneCtx, narration)
		if d.Known {
			known[scene.Number] = d.Seconds
		} else {
			probes[scene.Number] = d
		}
		images[scene.Number] = image
		audio[scene.Number] = narration
		texts = append(texts, subtitles.SceneText{
			Number:      scene.Number,
			Text:        scene.Text,
			HoldSeconds: scene.Timeframe,
		})
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	timeline, err := subtitles.Build(texts, func(scene int) (float64, bool) {
		seconds, ok := known[scene]
		return seconds, ok
	}, o.policy)
	if err != nil {
		return err
	}
	for _, number := range timeline.Skipped {
		d := probes[number]
		if d.Reason == "" {
			d.Reason = "duration rounds to zero"
		}
		p.skip(services.WithScene(ctx, number), o.logger, number, d.Err(audio[number]))
	}

	p.timeline = timeline
	for _, entry := range timeline.Entries {
		if entry.Held {
			reason := probes[entry.Scene].Reason
			if reason == "" {
				reason = "duration rounds to zero"
			}
			logging.WarnWithContext(logging.WithContext(services.WithScene(ctx, entry.Scene), o.logger),
				"holding scene without narration duration", "scene_held",
				logging.String("reason", reason),
				logging.Float64("hold_seconds", entry.Duration().Seconds()),
				logging.String(logging.FieldErrorHint, "regenerate the narration audio"),
				logging.String(logging.FieldImpact, "scene plays over silence"),
			)
		}
		p.scenes = append(p.scenes, scenePlan{
			entry: entry,
			image: images[entry.Scene],
			audio: audio[entry.Scene],
		})
	}
	logging.WithContext(ctx, o.logger).Info("run planned",
		logging.String(logging.FieldEventType, "run_planned"),
		logging.Int("scenes", len(scenes)),
		logging.Int("planned", len(p.scenes)),
		logging.Int("skipped", len(p.outcomes)),
		logging.Float64("planned_seconds", timeline.Total().Seconds()),
	)
	return nil
}

func (p *runPlan) skip(ctx context.Context, logger *slog.Logger, scene int, err error) {
	reason := services.Reason(err)
	p.outcomes[scene] = Outcome{Scene: scene, Status: SceneSkipped, Reason: reason, Err: err}
	attrs := []logging.Attr{
		logging.String("reason", reason),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the scene's image and narration assets"),
		logging.String(logging.FieldImpact, "scene omitted from the final video"),
	}
	if detail := toolexec.Diagnostics(err); detail != "" {
		attrs = append(attrs, logging.String("stderr", detail))
	}
	logging.WarnWithContext(logging.WithContext(ctx, logger), "scene skipped", "scene_skipped", attrs...)
}

// active returns the scene numbers still headed for the output.
func (p *runPlan) active() []int {
	var out []int
	for _, sp := range p.scenes {
		if !sp.dropped {
			out = append(out, sp.entry.Scene)
		}
	}
	return out
}

// rendered returns clip paths and scene numbers in ascending scene order,
// independent of the order workers finished in.
func (p *runPlan) rendered() ([]string, []int) {
	var clips []string
	var scenes []int
	for _, sp := range p.scenes {
		if sp.dropped || sp.clip == "" {
			continue
		}
		clips = append(clips, sp.clip)
		scenes = append(scenes, sp.entry.Scene)
	}
	return clips, scenes
}

func (p *runPlan) sortedOutcomes() []Outcome {
	out := make([]Outcome, 0, len(p.outcomes))
	for _, outcome := range p.outcomes {
		out = append(out, outcome)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scene < out[j].Scene })
	return out
}
