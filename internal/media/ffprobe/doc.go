// Package ffprobe measures media files with ffprobe.
//
// Key types:
//   - Prober: runs ffprobe through toolexec with a per-call timeout
//   - Duration: seconds plus a Known flag and a reason when unknown
//   - Result: parsed JSON report containing streams and format metadata
//
// Prober.Duration never returns an error. Missing files, tool failures,
// timeouts and garbage output all become an unknown Duration so callers can
// decide per scene whether to skip or hold.
package ffprobe
