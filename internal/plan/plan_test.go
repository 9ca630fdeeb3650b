package plan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/timing"
)

type fakeProbe map[string]float64

func (f fakeProbe) Duration(_ context.Context, path string) (float64, error) {
	seconds, ok := f[path]
	if !ok {
		return 0, errors.New("probe failed")
	}
	return seconds, nil
}

func writeAudio(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestBuildMatchesAllocator(t *testing.T) {
	c := timing.FromConfig(config.Default().Timing)
	part := Build(2, 30, c)
	if part.ParagraphIndex != 2 || part.NumImages != 4 || len(part.ImageDurations) != 4 {
		t.Fatalf("unexpected plan %+v", part)
	}
	if part.ImageDurations[0] != 3.1 {
		t.Fatalf("expected 3.1s images, got %v", part.ImageDurations[0])
	}
	if part.NumVideos != len(part.VideoDurations) {
		t.Fatalf("video count/durations mismatch: %+v", part)
	}
	if part.SlotCount() != part.NumImages+part.NumVideos {
		t.Fatal("slot count mismatch")
	}
	if part.SequenceSeconds != 32 {
		t.Fatalf("sequence = %v", part.SequenceSeconds)
	}
}

func TestSchedulerSkipsMissingAudio(t *testing.T) {
	dir := t.TempDir()
	first := writeAudio(t, dir, "p1.wav")
	third := writeAudio(t, dir, "p3.wav")
	broken := writeAudio(t, dir, "p4.wav")
	probe := fakeProbe{first: 30, third: 12.5}

	s := NewScheduler(probe, timing.FromConfig(config.Default().Timing), logging.NewNop())
	schedule, err := s.Schedule(context.Background(), []Narration{
		{ParagraphIndex: 0, AudioPath: first},
		{ParagraphIndex: 1, AudioPath: filepath.Join(dir, "missing.wav")},
		{ParagraphIndex: 2, AudioPath: third},
		{ParagraphIndex: 3, AudioPath: broken},
		{ParagraphIndex: 4},
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if schedule.Len() != 2 {
		t.Fatalf("expected 2 plans, got %d", schedule.Len())
	}
	if _, ok := schedule.Part(1); ok {
		t.Fatal("expected paragraph 1 to be skipped")
	}
	parts := schedule.Parts()
	if parts[0].ParagraphIndex != 0 || parts[1].ParagraphIndex != 2 {
		t.Fatalf("unexpected order: %+v", parts)
	}
	if parts[1].NarrationSeconds != 12.5 {
		t.Fatalf("unexpected narration seconds %v", parts[1].NarrationSeconds)
	}
}

func TestSchedulerFailsWithoutAnyPlan(t *testing.T) {
	s := NewScheduler(fakeProbe{}, timing.FromConfig(config.Default().Timing), nil)
	_, err := s.Schedule(context.Background(), []Narration{{ParagraphIndex: 0, AudioPath: "/nope.wav"}})
	if !errors.Is(err, ErrNoUsablePlan) {
		t.Fatalf("expected ErrNoUsablePlan, got %v", err)
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
}

func TestSchedulerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScheduler(fakeProbe{}, timing.Constraints{}, nil)
	if _, err := s.Schedule(ctx, []Narration{{ParagraphIndex: 0}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNilScheduleIsEmpty(t *testing.T) {
	var s *Schedule
	if _, ok := s.Part(0); ok || s.Len() != 0 || s.Parts() != nil {
		t.Fatal("nil schedule should behave as empty")
	}
}
