// Package history records assembly runs in SQLite.
//
// Each run gets a row in runs with its final status, output path and total
// duration; run_scenes holds one row per scene outcome (rendered or skipped,
// with the skip reason). The ledger is informational: a run never depends on
// what earlier runs left here.
//
// Schema changes bump schemaVersion; users delete the database to adopt the
// new schema.
package history
