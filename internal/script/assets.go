package script

import (
	"fmt"
	"os"
	"path/filepath"

	"scrolla/internal/services"
)

var (
	audioExtensions = []string{".mp3", ".wav", ".m4a"}
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}
)

// Assets locates per-scene media by scene number.
type Assets struct {
	AudioDir string
	ImageDir string
}

// Audio returns the narration file for a scene.
func (a Assets) Audio(scene int) (string, error) {
	return find(a.AudioDir, fmt.Sprintf("scene%d", scene), audioExtensions, "audio")
}

// Image returns the still image for a scene.
func (a Assets) Image(scene int) (string, error) {
	return find(a.ImageDir, fmt.Sprintf("image%d", scene), imageExtensions, "image")
}

func find(dir, stem string, extensions []string, kind string) (string, error) {
	for _, ext := range extensions {
		candidate := filepath.Join(dir, stem+ext)
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			abs, absErr := filepath.Abs(candidate)
			if absErr != nil {
				return candidate, nil
			}
			return abs, nil
		}
	}
	return "", services.Wrap(services.ErrMissingAsset, "assets", kind, fmt.Sprintf("no %s for %s in %s", kind, stem, dir), nil)
}
