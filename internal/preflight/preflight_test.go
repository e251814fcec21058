package preflight_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scrolla/internal/deps"
	"scrolla/internal/preflight"
	"scrolla/internal/services"
	"scrolla/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := preflight.CheckDirectoryAccess("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckFreeSpace("work", dir, 0); !result.Passed {
		t.Fatalf("zero minimum should pass: %s", result.Detail)
	}
	if result := preflight.CheckFreeSpace("work", dir, 1<<30); result.Passed {
		t.Fatal("an exabyte minimum should fail")
	}
	if result := preflight.CheckFreeSpace("work", filepath.Join(dir, "missing"), 0); result.Passed {
		t.Fatal("missing path should fail")
	}
}

func TestCheckOptionalAsset(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "music.mp3")
	testsupport.WriteFile(t, file, 16)
	cases := []struct {
		name string
		path string
		want bool
	}{
		{"unset", "", true},
		{"present", file, true},
		{"missing", filepath.Join(dir, "nope.mp3"), false},
		{"directory", dir, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := preflight.CheckOptionalAsset("asset", tc.path); got.Passed != tc.want {
				t.Fatalf("Passed = %v, want %v (%s)", got.Passed, tc.want, got.Detail)
			}
		})
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := preflight.RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil, got %v", results)
	}
}

func TestRunAll_StubbedConfigPasses(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	results := preflight.RunAll(context.Background(), cfg)
	if err := preflight.Err(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"Work directory", "Output directory", "FFmpeg", "FFprobe"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing check %q in %s", want, joined)
		}
	}
}

func TestRunAll_MissingWatermarkFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Watermark.Path = filepath.Join(t.TempDir(), "logo.png")
	err := preflight.Err(preflight.RunAll(context.Background(), cfg))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Watermark") {
		t.Fatalf("error should name the failed check: %v", err)
	}
}

func TestFromDependency(t *testing.T) {
	ok := preflight.FromDependency(deps.Status{Name: "FFmpeg", Available: true, Path: "/usr/bin/ffmpeg"})
	if !ok.Passed || ok.Detail != "/usr/bin/ffmpeg" {
		t.Fatalf("unexpected result %+v", ok)
	}
	optional := preflight.FromDependency(deps.Status{Name: "x", Optional: true, Detail: "binary \"x\" not found"})
	if !optional.Passed {
		t.Fatal("optional missing dependency should not fail preflight")
	}
}
