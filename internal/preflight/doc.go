// Package preflight provides readiness checks for the directories, optional
// assets and media binaries an assembly run depends on.
//
// `scrolla render` calls RunAll and refuses to start when any check fails,
// so a doomed run never renders a single clip. `scrolla status` prints the
// same results as a table. The orchestrator itself only repeats the free
// space check on its work directory.
package preflight
