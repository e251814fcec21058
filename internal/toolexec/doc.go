// Package toolexec runs ffmpeg and ffprobe as typed commands.
//
// A Command names the tool, its binary, the argument vector, the files it
// reads and the file it writes. Validate checks those paths before a process
// is started so a missing asset never surfaces as an opaque transcoder
// failure. Runner applies the per-command timeout, always waits for the
// process to exit, and reports failures as *Error values carrying the exit
// code and captured stderr.
//
// Arguments are passed as a vector; nothing is ever interpolated into a shell
// string.
package toolexec
