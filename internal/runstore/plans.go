package runstore

import (
	"context"
	"encoding/json"
	"fmt"

	"reelsmith/internal/plan"
	"reelsmith/internal/ranking"
)

// SavePlans replaces the stored part plans of a run.
func (s *Store) SavePlans(ctx context.Context, runID string, parts []plan.PartPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin plans tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM part_plans WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("clear plans: %w", err)
	}
	for _, p := range parts {
		images, err := json.Marshal(nonNil(p.ImageDurations))
		if err != nil {
			return fmt.Errorf("marshal image durations: %w", err)
		}
		videos, err := json.Marshal(nonNil(p.VideoDurations))
		if err != nil {
			return fmt.Errorf("marshal video durations: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO part_plans (
                run_id, paragraph_index, num_images, num_videos,
                image_durations_json, video_durations_json, narration_seconds, sequence_seconds
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, p.ParagraphIndex, p.NumImages, p.NumVideos,
			string(images), string(videos), p.NarrationSeconds, p.SequenceSeconds,
		); err != nil {
			return fmt.Errorf("insert plan p%d: %w", p.ParagraphIndex+1, err)
		}
	}
	return tx.Commit()
}

// Plans loads the stored part plans of a run as a schedule.
func (s *Store) Plans(ctx context.Context, runID string) (*plan.Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paragraph_index, num_images, num_videos, image_durations_json, video_durations_json,
                narration_seconds, sequence_seconds
         FROM part_plans WHERE run_id = ? ORDER BY paragraph_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()
	var parts []plan.PartPlan
	for rows.Next() {
		var (
			p              plan.PartPlan
			images, videos string
		)
		if err := rows.Scan(&p.ParagraphIndex, &p.NumImages, &p.NumVideos, &images, &videos,
			&p.NarrationSeconds, &p.SequenceSeconds); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if err := json.Unmarshal([]byte(images), &p.ImageDurations); err != nil {
			return nil, fmt.Errorf("decode image durations: %w", err)
		}
		if err := json.Unmarshal([]byte(videos), &p.VideoDurations); err != nil {
			return nil, fmt.Errorf("decode video durations: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plan.NewSchedule(parts...), nil
}

// SaveSelections replaces the stored selections of one paragraph.
func (s *Store) SaveSelections(ctx context.Context, runID string, paragraphIndex int, selections []ranking.Selection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin selections tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE run_id = ? AND paragraph_index = ?`, runID, paragraphIndex); err != nil {
		return fmt.Errorf("clear selections: %w", err)
	}
	for _, sel := range selections {
		fallback := 0
		if sel.Fallback {
			fallback = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO selections (
                run_id, paragraph_index, slot_key, url, description, target_description, attempts, state, fallback
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, paragraphIndex, sel.SlotKey, sel.Chosen.URL, nullableString(sel.Chosen.Description),
			nullableString(sel.TargetDescription), sel.Attempts, string(sel.State), fallback,
		); err != nil {
			return fmt.Errorf("insert selection %s: %w", sel.SlotKey, err)
		}
	}
	return tx.Commit()
}

// Selections lists the stored selections of a run in paragraph and slot order.
func (s *Store) Selections(ctx context.Context, runID string) ([]SelectionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paragraph_index, slot_key, url, COALESCE(description, ''), COALESCE(target_description, ''),
                attempts, state, fallback
         FROM selections WHERE run_id = ? ORDER BY paragraph_index, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()
	var records []SelectionRecord
	for rows.Next() {
		var (
			rec      SelectionRecord
			fallback int
		)
		if err := rows.Scan(&rec.ParagraphIndex, &rec.SlotKey, &rec.URL, &rec.Description,
			&rec.TargetDescription, &rec.Attempts, &rec.State, &fallback); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		rec.Fallback = fallback != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nonNil(values []float64) []float64 {
	if values == nil {
		return []float64{}
	}
	return values
}
