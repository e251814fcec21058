package stageexec_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"scrolla/internal/logging"
	"scrolla/internal/services"
	"scrolla/internal/stageexec"
	"scrolla/internal/toolexec"
)

func TestRunPropagatesStageContext(t *testing.T) {
	var observed []string
	var seen string
	err := stageexec.Run(context.Background(), stageexec.Options{
		Logger:    logging.NewNop(),
		StageName: "RENDER_SCENES",
		Observer:  func(stage string) { observed = append(observed, stage) },
	}, func(ctx context.Context) error {
		seen, _ = services.StageFromContext(ctx)
		return nil
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if seen != "RENDER_SCENES" {
		t.Fatalf("stage in context = %q", seen)
	}
	if len(observed) != 1 || observed[0] != "RENDER_SCENES" {
		t.Fatalf("observer saw %v", observed)
	}
}

func TestRunReturnsStageError(t *testing.T) {
	want := services.Wrap(services.ErrNoScenesRendered, "assembly", "manifest", "nothing to concatenate", nil)
	err := stageexec.Run(context.Background(), stageexec.Options{StageName: "BUILD_MANIFEST"}, func(context.Context) error {
		return want
	})
	if !errors.Is(err, services.ErrNoScenesRendered) {
		t.Fatalf("expected ErrNoScenesRendered, got %v", err)
	}
}

func TestRunRequiresBodyAndName(t *testing.T) {
	if err := stageexec.Run(context.Background(), stageexec.Options{StageName: "X"}, nil); err == nil {
		t.Fatal("expected error for nil body")
	}
	if err := stageexec.Run(context.Background(), stageexec.Options{}, func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for empty stage name")
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"RENDER_SCENES":    "Render Scenes",
		"NORMALIZE_IMAGES": "Normalize Images",
		"DONE":             "Done",
		"":                 "",
	}
	for in, want := range cases {
		if got := stageexec.Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunLogsToolStderrOnFailure(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStderr string
	}{
		{
			name: "tool failure",
			err: &toolexec.Error{
				Tool:     "ffmpeg",
				ExitCode: 1,
				Stderr:   "[AVFilterGraph] No such filter: 'amix'\nError initializing complex filters.\nConversion failed!\n",
			},
			wantStderr: "[AVFilterGraph] No such filter: 'amix'\nError initializing complex filters.\nConversion failed!",
		},
		{
			name: "no tool involved",
			err:  services.Wrap(services.ErrNoScenesRendered, "assembly", "manifest", "nothing to concatenate", nil),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			_ = stageexec.Run(context.Background(), stageexec.Options{Logger: logger, StageName: "CONCATENATE"}, func(context.Context) error {
				return tt.err
			})

			var failure map[string]any
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				var payload map[string]any
				if err := json.Unmarshal([]byte(line), &payload); err != nil {
					t.Fatalf("decode %q: %v", line, err)
				}
				if payload[logging.FieldEventType] == "stage_failure" {
					failure = payload
				}
			}
			if failure == nil {
				t.Fatalf("no stage_failure event in %s", buf.String())
			}
			got, _ := failure["stderr"].(string)
			if got != tt.wantStderr {
				t.Fatalf("stderr = %q, want %q", got, tt.wantStderr)
			}
		})
	}
}
