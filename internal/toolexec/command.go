package toolexec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scrolla/internal/services"
)

// Command describes one external tool invocation.
type Command struct {
	Tool    string
	Binary  string
	Args    []string
	Inputs  []string
	Output  string
	Timeout time.Duration
}

// Validate checks that the binary is set, every input exists and the output
// directory is present. Missing inputs are tagged services.ErrMissingAsset.
func (c Command) Validate() error {
	if strings.TrimSpace(c.Binary) == "" {
		return services.Wrap(services.ErrConfiguration, c.label(), "validate", "binary not configured", nil)
	}
	for _, input := range c.Inputs {
		if strings.TrimSpace(input) == "" {
			return services.Wrap(services.ErrValidation, c.label(), "validate", "empty input path", nil)
		}
		info, err := os.Stat(input)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return services.Wrap(services.ErrMissingAsset, c.label(), "validate", fmt.Sprintf("input %q not found", input), nil)
			}
			return services.Wrap(services.ErrMissingAsset, c.label(), "validate", fmt.Sprintf("stat input %q", input), err)
		}
		if info.IsDir() {
			return services.Wrap(services.ErrValidation, c.label(), "validate", fmt.Sprintf("input %q is a directory", input), nil)
		}
	}
	if c.Output != "" {
		dir := filepath.Dir(c.Output)
		info, err := os.Stat(dir)
		if err != nil {
			return services.Wrap(services.ErrValidation, c.label(), "validate", fmt.Sprintf("output directory %q unavailable", dir), err)
		}
		if !info.IsDir() {
			return services.Wrap(services.ErrValidation, c.label(), "validate", fmt.Sprintf("output parent %q is not a directory", dir), nil)
		}
	}
	return nil
}

// String renders the command for logs. The output is not shell-safe.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Binary)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t'\"") {
			parts = append(parts, fmt.Sprintf("%q", arg))
			continue
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

func (c Command) label() string {
	if tool := strings.TrimSpace(c.Tool); tool != "" {
		return tool
	}
	return filepath.Base(c.Binary)
}
