package deps

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"scrolla/internal/toolexec"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("unexpected status for present binary: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail: %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for unset command: %q", results[2].Detail)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("Missing() = %#v", missing)
	}
}

func TestMediaRequirements(t *testing.T) {
	reqs := MediaRequirements("/opt/ffmpeg", "/opt/ffprobe")
	if len(reqs) != 2 || reqs[0].Command != "/opt/ffmpeg" || reqs[1].Command != "/opt/ffprobe" {
		t.Fatalf("unexpected requirements %#v", reqs)
	}
	for _, req := range reqs {
		if req.Optional {
			t.Fatalf("%s should be required", req.Name)
		}
	}
}

const filterListing = `Filters:
  T.. = Timeline support
  ------
 TSC amix              N->A       Audio mixing.
 T.C volume            A->A       Change input volume.
 ... anullsrc          |->A       Null audio source, return empty audio frames.
 T.C fade              V->V       Fade in/out input video.
 TS. overlay           VV->V      Overlay a video source on top of the input.
`

type listingExecutor struct{ out string }

func (l listingExecutor) Run(_ context.Context, _ string, _ []string, stdout, _ io.Writer) error {
	_, err := io.WriteString(stdout, l.out)
	return err
}

func TestCheckFiltersReportsMissingDrawtext(t *testing.T) {
	runner := toolexec.NewRunner(toolexec.WithExecutor(listingExecutor{out: filterListing}))
	missing, err := CheckFilters(context.Background(), runner, "ffmpeg", RequiredFilters)
	if err != nil {
		t.Fatalf("CheckFilters: %v", err)
	}
	if len(missing) != 1 || missing[0] != "drawtext" {
		t.Fatalf("missing = %v, want [drawtext]", missing)
	}
}

func TestParseFiltersIgnoresLegend(t *testing.T) {
	filters := parseFilters(filterListing)
	if _, ok := filters["="]; ok {
		t.Fatal("legend rows must not be parsed as filters")
	}
	if _, ok := filters["amix"]; !ok {
		t.Fatal("amix should be parsed")
	}
}
