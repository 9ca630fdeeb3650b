package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/timing"
)

// ErrNoUsablePlan is returned when no paragraph produced a plan.
var ErrNoUsablePlan = errors.New("no usable paragraph plan")

// DurationProbe reads the length of an audio file in seconds.
type DurationProbe interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// PartPlan is the clip plan for one paragraph.
type PartPlan struct {
	ParagraphIndex   int       `json:"paragraph_index"`
	NumImages        int       `json:"num_images"`
	NumVideos        int       `json:"num_videos"`
	ImageDurations   []float64 `json:"image_durations"`
	VideoDurations   []float64 `json:"video_durations"`
	NarrationSeconds float64   `json:"narration_seconds"`
	SequenceSeconds  float64   `json:"sequence_seconds"`
}

// SlotCount is the total number of planned slots.
func (p PartPlan) SlotCount() int {
	return p.NumImages + p.NumVideos
}

// DisplaySeconds sums all planned clip durations before crossfade overlap.
func (p PartPlan) DisplaySeconds() float64 {
	var total float64
	for _, d := range p.ImageDurations {
		total += d
	}
	for _, d := range p.VideoDurations {
		total += d
	}
	return total
}

// Build computes the plan for one paragraph from its narration length.
func Build(paragraphIndex int, narrationSeconds float64, c timing.Constraints) PartPlan {
	alloc := timing.Allocate(timing.Inputs{NarrationSeconds: narrationSeconds}, c)
	return PartPlan{
		ParagraphIndex:   paragraphIndex,
		NumImages:        alloc.Images.Count,
		NumVideos:        alloc.Videos.Count,
		ImageDurations:   alloc.Images.Durations(),
		VideoDurations:   alloc.Videos.Durations(),
		NarrationSeconds: narrationSeconds,
		SequenceSeconds:  alloc.SequenceSeconds,
	}
}

// Narration points at one paragraph's synthesized audio.
type Narration struct {
	ParagraphIndex int
	AudioPath      string
}

// Schedule holds the plans of one run keyed by paragraph index.
type Schedule struct {
	parts map[int]PartPlan
}

// NewSchedule builds a schedule from already computed plans.
func NewSchedule(parts ...PartPlan) *Schedule {
	s := &Schedule{parts: make(map[int]PartPlan, len(parts))}
	for _, p := range parts {
		s.parts[p.ParagraphIndex] = p
	}
	return s
}

// Part returns the plan for a paragraph; ok is false when it was skipped.
func (s *Schedule) Part(index int) (PartPlan, bool) {
	if s == nil {
		return PartPlan{}, false
	}
	p, ok := s.parts[index]
	return p, ok
}

// Parts returns all plans in paragraph order.
func (s *Schedule) Parts() []PartPlan {
	if s == nil {
		return nil
	}
	out := make([]PartPlan, 0, len(s.parts))
	for _, p := range s.parts {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b PartPlan) int { return a.ParagraphIndex - b.ParagraphIndex })
	return out
}

// Len returns the number of planned paragraphs.
func (s *Schedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.parts)
}

// Scheduler applies the allocator across a script's paragraphs.
type Scheduler struct {
	probe       DurationProbe
	constraints timing.Constraints
	logger      *slog.Logger
}

// NewScheduler constructs a Scheduler.
func NewScheduler(probe DurationProbe, constraints timing.Constraints, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		probe:       probe,
		constraints: constraints,
		logger:      logging.NewComponentLogger(logger, "plan"),
	}
}

// Schedule probes each narration and plans its paragraph.
func (s *Scheduler) Schedule(ctx context.Context, narrations []Narration) (*Schedule, error) {
	if s.probe == nil {
		return nil, services.Wrap(services.ErrConfiguration, "plan", "schedule", "duration probe unavailable", nil)
	}
	schedule := NewSchedule()
	for _, n := range narrations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logger := s.logger.With(logging.Int(logging.FieldParagraph, n.ParagraphIndex+1))
		seconds, err := s.narrationSeconds(ctx, n)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logging.WarnWithContext(logger, "paragraph skipped: narration unavailable", "plan_skipped",
				logging.Error(err),
				logging.String("audio_path", n.AudioPath),
				logging.String(logging.FieldErrorHint, "re-run narration for this paragraph"),
				logging.String(logging.FieldImpact, "paragraph has no visuals"),
			)
			continue
		}
		part := Build(n.ParagraphIndex, seconds, s.constraints)
		schedule.parts[n.ParagraphIndex] = part
		logger.Info("paragraph planned",
			logging.String(logging.FieldEventType, "plan_built"),
			logging.Float64("narration_seconds", seconds),
			logging.Int("images", part.NumImages),
			logging.Int("videos", part.NumVideos),
		)
	}
	if schedule.Len() == 0 {
		return nil, services.Wrap(services.ErrValidation, "plan", "schedule",
			fmt.Sprintf("%d paragraphs", len(narrations)), ErrNoUsablePlan)
	}
	return schedule, nil
}

func (s *Scheduler) narrationSeconds(ctx context.Context, n Narration) (float64, error) {
	path := strings.TrimSpace(n.AudioPath)
	if path == "" {
		return 0, errors.New("no narration audio")
	}
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("stat narration: %w", err)
	}
	seconds, err := s.probe.Duration(ctx, path)
	if err != nil {
		return 0, err
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("narration duration %.3fs", seconds)
	}
	return seconds, nil
}
