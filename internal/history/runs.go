package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"scrolla/internal/toolexec"
)

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// SceneStatus is the recorded outcome of one scene.
type SceneStatus string

const (
	SceneRendered SceneStatus = "rendered"
	SceneSkipped  SceneStatus = "skipped"
)

// timeLayout keeps fractional seconds fixed-width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one row of the runs table.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	Status       RunStatus
	OutputPath   string
	TotalSeconds float64
	Error        string
	// ErrorDetail is the stderr a failed tool left behind, if any.
	ErrorDetail  string
}

// Scene is one row of the run_scenes table.
type Scene struct {
	RunID           string
	Number          int
	Status          SceneStatus
	DurationSeconds float64
	// Held is set when the duration came from the hold policy rather than the audio.
	Held            bool
	Reason          string
}

// BeginRun inserts a running run and returns its generated id.
func (s *Store) BeginRun(ctx context.Context, outputPath string) (string, error) {
	id := uuid.NewString()
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, started_at, status, output_path) VALUES (?, ?, ?, ?)`,
		id,
		time.Now().UTC().Format(timeLayout),
		RunRunning,
		outputPath,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordScene stores or replaces a scene outcome for a run.
func (s *Store) RecordScene(ctx context.Context, scene Scene) error {
	_, err := s.exec(ctx,
		`INSERT INTO run_scenes (run_id, scene_number, status, duration_seconds, held, reason)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, scene_number) DO UPDATE SET
            status = excluded.status,
            duration_seconds = excluded.duration_seconds,
            held = excluded.held,
            reason = excluded.reason`,
		scene.RunID,
		scene.Number,
		scene.Status,
		scene.DurationSeconds,
		scene.Held,
		nullableString(scene.Reason),
	)
	if err != nil {
		return fmt.Errorf("record scene %d: %w", scene.Number, err)
	}
	return nil
}

// FinishRun marks a run complete. A non-nil runErr marks it failed and keeps
// any tool stderr it carries alongside the message.
func (s *Store) FinishRun(ctx context.Context, id string, totalSeconds float64, runErr error) error {
	status := RunSucceeded
	var message, detail string
	if runErr != nil {
		status = RunFailed
		message = runErr.Error()
		detail = toolexec.Diagnostics(runErr)
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, total_seconds = ?, error = ?, error_detail = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout),
		status,
		totalSeconds,
		nullableString(message),
		nullableString(detail),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, finished_at, status, output_path, total_seconds, error, error_detail
              FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a run by id.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, finished_at, status, output_path, total_seconds, error, error_detail
         FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return run, err
}

// RunScenes returns the scene outcomes of a run in scene order.
func (s *Store) RunScenes(ctx context.Context, id string) ([]Scene, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, scene_number, status, duration_seconds, held, reason
         FROM run_scenes WHERE run_id = ? ORDER BY scene_number`, id)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}
	defer rows.Close()

	var scenes []Scene
	for rows.Next() {
		var (
			scene  Scene
			reason sql.NullString
		)
		if err := rows.Scan(&scene.RunID, &scene.Number, &scene.Status, &scene.DurationSeconds, &scene.Held, &reason); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		scene.Reason = reason.String
		scenes = append(scenes, scene)
	}
	return scenes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		errText    sql.NullString
		detail     sql.NullString
	)
	if err := row.Scan(&run.ID, &startedAt, &finishedAt, &run.Status, &run.OutputPath, &run.TotalSeconds, &errText, &detail); err != nil {
		return Run{}, err
	}
	if ts, err := time.Parse(timeLayout, startedAt); err == nil {
		run.StartedAt = ts
	}
	if finishedAt.Valid {
		if ts, err := time.Parse(timeLayout, finishedAt.String); err == nil {
			run.FinishedAt = ts
		}
	}
	run.Error = errText.String
	run.ErrorDetail = detail.String
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
