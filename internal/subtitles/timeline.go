package subtitles

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"scrolla/internal/services"
)

// UnknownPolicy decides what happens to a scene whose duration is unknown.
type UnknownPolicy string

const (
	// PolicySkip drops the scene; the cursor does not move.
	PolicySkip UnknownPolicy = "skip"
	// PolicyHold keeps the scene for a fixed hold duration.
	PolicyHold UnknownPolicy = "hold"
)

// ParsePolicy converts a configuration string into an UnknownPolicy.
func ParsePolicy(value string) (UnknownPolicy, error) {
	switch p := UnknownPolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case PolicySkip, PolicyHold:
		return p, nil
	case "":
		return PolicySkip, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "subtitles", "policy", fmt.Sprintf("unknown duration policy %q", value), nil)
	}
}

// Policy configures Build.
type Policy struct {
	Unknown UnknownPolicy
	// HoldSeconds applies under PolicyHold when the scene carries no hold of its own.
	HoldSeconds float64
}

// SceneText is one caption input.
type SceneText struct {
	Number int
	Text   string
	// HoldSeconds is the scene's own planned length, used under PolicyHold.
	HoldSeconds float64
}

// DurationLookup reports the measured narration length of a scene.
type DurationLookup func(scene int) (seconds float64, known bool)

// Entry is one caption in the timeline. Start is inclusive, End exclusive.
type Entry struct {
	Index int
	Scene int
	Start time.Duration
	End   time.Duration
	Text  string
	Held  bool
}

// Duration returns the span covered by the entry.
func (e Entry) Duration() time.Duration {
	return e.End - e.Start
}

// Timeline is the ordered, contiguous caption track of a run.
type Timeline struct {
	Entries []Entry
	// Skipped lists scene numbers dropped for an unknown duration, ascending.
	Skipped []int
}

// Build lays scenes end to end in ascending scene number. Duplicate or
// non-positive scene numbers are rejected. An empty timeline is valid.
func Build(scenes []SceneText, lookup DurationLookup, policy Policy) (Timeline, error) {
	if policy.Unknown == "" {
		policy.Unknown = PolicySkip
	}
	if policy.Unknown != PolicySkip && policy.Unknown != PolicyHold {
		return Timeline{}, services.Wrap(services.ErrConfiguration, "subtitles", "build", fmt.Sprintf("unknown duration policy %q", policy.Unknown), nil)
	}

	ordered := append([]SceneText(nil), scenes...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })
	for i, scene := range ordered {
		if scene.Number <= 0 {
			return Timeline{}, services.Wrap(services.ErrValidation, "subtitles", "build", fmt.Sprintf("scene number %d is not positive", scene.Number), nil)
		}
		if i > 0 && ordered[i-1].Number == scene.Number {
			return Timeline{}, services.Wrap(services.ErrValidation, "subtitles", "build", fmt.Sprintf("duplicate scene number %d", scene.Number), nil)
		}
	}

	var timeline Timeline
	var cursor time.Duration
	for _, scene := range ordered {
		length, held := sceneLength(scene, lookup, policy)
		if length <= 0 {
			timeline.Skipped = append(timeline.Skipped, scene.Number)
			continue
		}
		entry := Entry{
			Index: len(timeline.Entries) + 1,
			Scene: scene.Number,
			Start: cursor,
			End:   cursor + length,
			Text:  CleanText(scene.Text),
			Held:  held,
		}
		timeline.Entries = append(timeline.Entries, entry)
		cursor = entry.End
	}
	return timeline, nil
}

func sceneLength(scene SceneText, lookup DurationLookup, policy Policy) (time.Duration, bool) {
	if lookup != nil {
		if seconds, known := lookup(scene.Number); known {
			if length := Milliseconds(seconds); length > 0 {
				return length, false
			}
		}
	}
	if policy.Unknown != PolicyHold {
		return 0, false
	}
	if scene.HoldSeconds > 0 {
		return Milliseconds(scene.HoldSeconds), true
	}
	return Milliseconds(policy.HoldSeconds), true
}

// Milliseconds converts seconds to a Duration rounded to the nearest
// millisecond. Non-finite or negative input yields zero.
func Milliseconds(seconds float64) time.Duration {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0
	}
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}

// Total returns the summed duration of every entry.
func (t Timeline) Total() time.Duration {
	var total time.Duration
	for _, entry := range t.Entries {
		total += entry.Duration()
	}
	return total
}

// Entry returns the entry for a scene number.
func (t Timeline) Entry(scene int) (Entry, bool) {
	for _, entry := range t.Entries {
		if entry.Scene == scene {
			return entry, true
		}
	}
	return Entry{}, false
}

// Scenes returns the included scene numbers in timeline order.
func (t Timeline) Scenes() []int {
	scenes := make([]int, 0, len(t.Entries))
	for _, entry := range t.Entries {
		scenes = append(scenes, entry.Scene)
	}
	return scenes
}

// Restrict returns a new timeline containing only the listed scenes, laid
// end to end again from zero and reindexed. Held flags and text carry over.
func (t Timeline) Restrict(scenes []int) Timeline {
	keep := make(map[int]struct{}, len(scenes))
	for _, scene := range scenes {
		keep[scene] = struct{}{}
	}
	var out Timeline
	out.Skipped = append(out.Skipped, t.Skipped...)
	var cursor time.Duration
	for _, entry := range t.Entries {
		if _, ok := keep[entry.Scene]; !ok {
			continue
		}
		length := entry.Duration()
		entry.Index = len(out.Entries) + 1
		entry.Start = cursor
		entry.End = cursor + length
		out.Entries = append(out.Entries, entry)
		cursor = entry.End
	}
	return out
}
