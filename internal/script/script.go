package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"scrolla/internal/services"
)

// Scene is one narrated unit as emitted by the script generator.
type Scene struct {
	Number      int     `json:"scene_number"`
	Text        string  `json:"text"`
	ImagePrompt string  `json:"image_prompt,omitempty"`
	Timeframe   float64 `json:"timeframe,omitempty"`
}

// Script is an ordered list of scenes.
type Script struct {
	Scenes []Scene `json:"scenes"`
}

// Load reads a script file. Both a bare JSON array of scenes and an object
// with a "scenes" field are accepted.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, services.Wrap(services.ErrValidation, "script", "read", path, err)
	}
	return Parse(data)
}

// Parse decodes script JSON and validates scene numbering.
func Parse(data []byte) (Script, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Script{}, services.Wrap(services.ErrValidation, "script", "parse", "empty script", nil)
	}
	var s Script
	var err error
	if trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &s.Scenes)
	} else {
		err = json.Unmarshal(trimmed, &s)
	}
	if err != nil {
		return Script{}, services.Wrap(services.ErrValidation, "script", "parse", "decode json", err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	sort.SliceStable(s.Scenes, func(i, j int) bool { return s.Scenes[i].Number < s.Scenes[j].Number })
	return s, nil
}

// Validate rejects empty scripts and scenes with unusable numbering or a
// negative timeframe.
func (s Script) Validate() error {
	if len(s.Scenes) == 0 {
		return services.Wrap(services.ErrValidation, "script", "validate", "script has no scenes", nil)
	}
	seen := make(map[int]struct{}, len(s.Scenes))
	for _, scene := range s.Scenes {
		if scene.Number <= 0 {
			return services.Wrap(services.ErrValidation, "script", "validate", fmt.Sprintf("scene number %d is not positive", scene.Number), nil)
		}
		if _, dup := seen[scene.Number]; dup {
			return services.Wrap(services.ErrValidation, "script", "validate", fmt.Sprintf("duplicate scene number %d", scene.Number), nil)
		}
		if scene.Timeframe < 0 {
			return services.Wrap(services.ErrValidation, "script", "validate", fmt.Sprintf("scene %d has negative timeframe", scene.Number), nil)
		}
		seen[scene.Number] = struct{}{}
	}
	return nil
}

// Numbers returns the scene numbers in ascending order.
func (s Script) Numbers() []int {
	out := make([]int, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		out = append(out, scene.Number)
	}
	sort.Ints(out)
	return out
}
