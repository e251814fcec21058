// Package config loads, normalizes, and validates scrolla configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// SCROLLA_FFMPEG. The Config type centralizes the canvas, caption layout,
// encoding and tool settings every assembly run needs.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
