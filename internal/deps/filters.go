package deps

import (
	"bufio"
	"context"
	"strings"
	"time"

	"scrolla/internal/toolexec"
)

// RequiredFilters are the ffmpeg filters the render and concat graphs use.
var RequiredFilters = []string{"drawtext", "overlay", "fade", "amix", "volume", "anullsrc"}

// CheckFilters runs `ffmpeg -filters` and returns the names from want that
// the binary does not provide. drawtext in particular is absent from builds
// without libfreetype.
func CheckFilters(ctx context.Context, runner *toolexec.Runner, ffmpeg string, want []string) ([]string, error) {
	if runner == nil {
		runner = toolexec.NewRunner()
	}
	result, err := runner.Run(ctx, toolexec.Command{
		Tool:    "ffmpeg",
		Binary:  ffmpeg,
		Args:    []string{"-hide_banner", "-filters"},
		Timeout: 15 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	available := parseFilters(string(result.Stdout))
	var missing []string
	for _, name := range want {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

// parseFilters reads the filter table printed by `ffmpeg -filters`. Each
// filter row has a flags column, the name, then its pad signature.
func parseFilters(output string) map[string]struct{} {
	filters := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		filters[fields[1]] = struct{}{}
	}
	return filters
}
