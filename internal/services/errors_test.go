package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scrolla/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "render", "ffmpeg", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render", "ffmpeg", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrMissingAsset, "", "", "", nil)
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("expected missing asset marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestSceneDisposition(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Disposition
	}{
		{"missing asset", services.Wrap(services.ErrMissingAsset, "render", "", "no image", nil), services.DispositionSkip},
		{"unknown duration", services.Wrap(services.ErrUnknownDuration, "probe", "", "", nil), services.DispositionSkip},
		{"tool failure", services.Wrap(services.ErrExternalTool, "render", "", "", errors.New("exit 1")), services.DispositionSkip},
		{"timeout", services.Wrap(services.ErrTimeout, "render", "", "", nil), services.DispositionSkip},
		{"validation", services.Wrap(services.ErrValidation, "render", "", "", nil), services.DispositionFatal},
		{"configuration", services.Wrap(services.ErrConfiguration, "layout", "", "", nil), services.DispositionFatal},
		{"canceled", context.Canceled, services.DispositionFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.SceneDisposition(tc.err); got != tc.want {
				t.Fatalf("SceneDisposition = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestReasonLabels(t *testing.T) {
	if got := services.Reason(services.Wrap(services.ErrTimeout, "render", "", "", nil)); got != "timeout" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := services.Reason(nil); got != "" {
		t.Fatalf("expected empty reason for nil, got %q", got)
	}
	if got := services.Reason(errors.New("other")); got != "error" {
		t.Fatalf("unexpected reason %q", got)
	}
}
