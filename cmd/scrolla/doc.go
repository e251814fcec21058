// Package main hosts the scrolla CLI entrypoint and command graph.
//
// Each subcommand loads configuration once through commandContext, builds
// the slog logger from it and hands off to an internal package. render runs
// the full assembly; the remaining commands expose single stages (probe,
// subtitles, layout, normalize) and housekeeping (history, status, clean,
// config) so a failing run can be reproduced one step at a time.
package main
