package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const runColumns = "id, topic, goal, status, video_dir, output_path, error_message, paragraphs, created_at, updated_at"

// ErrRunNotFound reports an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// CreateRun records a new pending run.
func (s *Store) CreateRun(ctx context.Context, id, topic, goal, videoDir string) (*Run, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("create run: id required")
	}
	now := timestamp()
	if _, err := s.exec(ctx,
		`INSERT INTO runs (id, topic, goal, status, video_dir, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, topic, nullableString(goal), StatusPending, videoDir, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a run. It returns nil, nil when the id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns runs newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at DESC, id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SetStatus moves a run to a processing status.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	return s.update(ctx, id, `UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, timestamp(), id)
}

// SetParagraphs records the number of paragraphs in the run script.
func (s *Store) SetParagraphs(ctx context.Context, id string, paragraphs int) error {
	return s.update(ctx, id, `UPDATE runs SET paragraphs = ?, updated_at = ? WHERE id = ?`, paragraphs, timestamp(), id)
}

// Complete marks a run finished with its output path.
func (s *Store) Complete(ctx context.Context, id, outputPath string) error {
	return s.update(ctx, id,
		`UPDATE runs SET status = ?, output_path = ?, error_message = NULL, updated_at = ? WHERE id = ?`,
		StatusCompleted, outputPath, timestamp(), id)
}

// Fail marks a run failed with a message.
func (s *Store) Fail(ctx context.Context, id, message string) error {
	return s.update(ctx, id,
		`UPDATE runs SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, nullableString(message), timestamp(), id)
}

// Remove deletes a run with its plans and selections.
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.update(ctx, id, `DELETE FROM runs WHERE id = ?`, id)
}

func (s *Store) update(ctx context.Context, id, query string, args ...any) error {
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run                    Run
		status                 string
		goal, output, errMsg   sql.NullString
		createdRaw, updatedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Topic,
		&goal,
		&status,
		&run.VideoDir,
		&output,
		&errMsg,
		&run.Paragraphs,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.Goal = goal.String
	run.OutputPath = output.String
	run.ErrorMessage = errMsg.String
	run.CreatedAt = parseTime(createdRaw)
	run.UpdatedAt = parseTime(updatedRaw)
	return &run, nil
}
