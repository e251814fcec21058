package textutil

import (
	"path/filepath"
	"strings"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"'", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; quotes and the
// remaining shell-hostile characters are removed. Single quotes are dropped
// so default output names never need concat-manifest escaping.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// VideoName returns the default output file name for a script: its base name
// without extension, sanitized, with ext appended. fallback is used when
// nothing usable remains.
func VideoName(scriptPath, ext, fallback string) string {
	base := filepath.Base(strings.TrimSpace(scriptPath))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.Trim(SanitizeFileName(stem), ".-")
	if stem == "" {
		stem = fallback
	}
	return stem + ext
}
