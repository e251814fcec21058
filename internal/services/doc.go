// Package services defines shared utilities consumed by the assembly pipeline
// and its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, scene numbers, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     scene-level (skip and continue) or run-level (fatal).
//
// Use these helpers when wiring new pipeline steps so failure handling stays
// uniform across the run.
package services
