// Package render turns one scene into a video clip with ffmpeg.
//
// A clip is the normalized still image held for the scene duration, the
// narration track, an optional watermark overlay and one drawtext filter per
// caption line. Caption text passes through EscapeDrawtext so it survives
// filtergraph parsing, option parsing and drawtext expansion intact.
//
// The renderer never removes its output on failure; the orchestrator owns
// cleanup.
package render
