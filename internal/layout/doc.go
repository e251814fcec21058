// Package layout wraps caption text and places it on the canvas.
//
// Widths use a fixed per-character heuristic relative to font size rather
// than real glyph metrics, so results are deterministic across hosts and
// fonts.
package layout
