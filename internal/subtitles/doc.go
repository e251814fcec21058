// Package subtitles builds the caption timeline for an assembly run.
//
// Build walks scenes in ascending scene number, cleans each caption, and
// lays the entries end to end: every entry starts exactly where the previous
// one ended. Scenes whose narration length is unknown are either dropped
// (PolicySkip) or held for a fixed duration (PolicyHold). All arithmetic is
// done in whole milliseconds so the timeline total always equals the sum of
// the included durations.
//
// The timeline serializes to SRT and can be parsed back from it.
package subtitles
