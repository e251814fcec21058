package script_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"scrolla/internal/script"
	"scrolla/internal/services"
	"scrolla/internal/testsupport"
)

func TestParseAcceptsArrayAndObject(t *testing.T) {
	array := `[{"scene_number":2,"text":"two","image_prompt":"a hill","timeframe":5},{"scene_number":1,"text":"one"}]`
	s, err := script.Parse([]byte(array))
	if err != nil {
		t.Fatalf("Parse array: %v", err)
	}
	if !reflect.DeepEqual(s.Numbers(), []int{1, 2}) || s.Scenes[0].Number != 1 {
		t.Fatalf("scenes not ordered by number: %+v", s.Scenes)
	}
	if s.Scenes[1].Timeframe != 5 || s.Scenes[1].ImagePrompt != "a hill" {
		t.Fatalf("unexpected scene 2: %+v", s.Scenes[1])
	}

	object := `{"scenes":[{"scene_number":1,"text":"only"}]}`
	s, err = script.Parse([]byte(object))
	if err != nil {
		t.Fatalf("Parse object: %v", err)
	}
	if len(s.Scenes) != 1 || s.Scenes[0].Text != "only" {
		t.Fatalf("unexpected scenes: %+v", s.Scenes)
	}
}

func TestParseRejectsInvalidScripts(t *testing.T) {
	for _, input := range []string{
		``,
		`[]`,
		`{"scenes":[]}`,
		`[{"scene_number":0,"text":"x"}]`,
		`[{"scene_number":1},{"scene_number":1}]`,
		`[{"scene_number":1,"timeframe":-2}]`,
		`[{"scene_number":"one"}]`,
	} {
		if _, err := script.Parse([]byte(input)); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error for %q, got %v", input, err)
		}
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.json")
	if err := os.WriteFile(path, []byte(`[{"scene_number":1,"text":"hi"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := script.Load(path)
	if err != nil || len(s.Scenes) != 1 {
		t.Fatalf("Load: %+v %v", s, err)
	}
	if _, err := script.Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing file, got %v", err)
	}
}

func TestAssetsResolveByNumber(t *testing.T) {
	dir := t.TempDir()
	audioDir := filepath.Join(dir, "audio")
	imageDir := filepath.Join(dir, "images")
	testsupport.WriteFile(t, filepath.Join(audioDir, "scene1.mp3"), 8)
	testsupport.WriteFile(t, filepath.Join(audioDir, "scene10.wav"), 8)
	testsupport.WriteFile(t, filepath.Join(imageDir, "image1.png"), 8)
	testsupport.WriteFile(t, filepath.Join(imageDir, "image1.jpg"), 8)

	assets := script.Assets{AudioDir: audioDir, ImageDir: imageDir}
	audio, err := assets.Audio(1)
	if err != nil || filepath.Base(audio) != "scene1.mp3" || !filepath.IsAbs(audio) {
		t.Fatalf("unexpected audio %q %v", audio, err)
	}
	if audio, err := assets.Audio(10); err != nil || filepath.Base(audio) != "scene10.wav" {
		t.Fatalf("unexpected audio for scene 10: %q %v", audio, err)
	}
	image, err := assets.Image(1)
	if err != nil || filepath.Base(image) != "image1.jpg" {
		t.Fatalf("expected jpg to win extension precedence, got %q %v", image, err)
	}
	if _, err := assets.Audio(2); !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("expected missing asset, got %v", err)
	}
	if _, err := assets.Image(10); !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("expected missing asset, got %v", err)
	}
}
