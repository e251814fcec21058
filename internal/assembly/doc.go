// Package assembly drives a whole run: it probes narration, lays out the
// caption timeline, normalizes stills, renders one clip per scene on a
// bounded worker pool and concatenates the clips with optional background
// music into the final video.
//
// Scenes are skipped, never retried, when an asset is missing, a duration
// cannot be measured or a render fails. A run fails when nothing renders or
// the final mix fails; in that case the run's work directory is kept for
// inspection and any previous output at the target path is left untouched.
package assembly
