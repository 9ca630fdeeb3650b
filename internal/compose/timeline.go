package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"reelsmith/internal/footage"
	"reelsmith/internal/logging"
	"reelsmith/internal/plan"
)

// ErrEmptyTimeline reports a paragraph with no usable media.
var ErrEmptyTimeline = errors.New("compose: empty timeline")

// Segment is one input of a paragraph clip.
type Segment struct {
	SlotKey  string
	Kind     footage.Kind
	Path     string
	Duration float64
	Start    float64
}

// End returns the time the segment stops contributing frames.
func (s Segment) End() float64 {
	return s.Start + s.Duration
}

// Timeline is the ordered segment list for one paragraph.
type Timeline struct {
	ParagraphIndex int
	Crossfade      float64
	Segments       []Segment
}

// Len returns the number of segments.
func (t Timeline) Len() int {
	return len(t.Segments)
}

// Total returns sum(d) - (n-1)*crossfade.
func (t Timeline) Total() float64 {
	if len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End()
}

// BuildTimeline lays out the slots a plan calls for. files maps slot keys to
// local media paths; keys absent from it are skipped. Video segments are capped
// at the source length reported by probe (nil probe trusts the plan).
// Segments not longer than the crossfade cannot transition and are dropped.
func BuildTimeline(ctx context.Context, part plan.PartPlan, files map[string]string, probe plan.DurationProbe, crossfade float64, logger *slog.Logger) Timeline {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "compose"))
	if crossfade < 0 {
		crossfade = 0
	}
	tl := Timeline{ParagraphIndex: part.ParagraphIndex, Crossfade: crossfade}

	add := func(kind footage.Kind, index int, allotted float64) {
		key := footage.SlotKey(kind, index)
		path, ok := files[key]
		if !ok || path == "" {
			logger.Debug("slot missing, skipped", logging.String(logging.FieldSlot, key))
			return
		}
		duration := allotted
		if kind == footage.KindVideo && probe != nil {
			source, err := probe.Duration(ctx, path)
			if err != nil {
				logging.WarnWithContext(logger, "video probe failed", "segment_skipped",
					logging.String(logging.FieldSlot, key),
					logging.Error(err),
					logging.String(logging.FieldImpact, "video left out of the paragraph clip"),
				)
				return
			}
			duration = min(duration, source)
		}
		if duration <= crossfade || duration <= 0 {
			logging.WarnWithContext(logger, "segment too short for crossfade", "segment_skipped",
				logging.String(logging.FieldSlot, key),
				logging.Float64("duration_seconds", duration),
				logging.Float64("crossfade_seconds", crossfade),
				logging.String(logging.FieldImpact, "clip left out of the paragraph clip"),
			)
			return
		}
		start := 0.0
		if n := len(tl.Segments); n > 0 {
			start = tl.Segments[n-1].End() - crossfade
		}
		tl.Segments = append(tl.Segments, Segment{
			SlotKey:  key,
			Kind:     kind,
			Path:     path,
			Duration: duration,
			Start:    start,
		})
	}

	for i, d := range part.ImageDurations {
		add(footage.KindImage, i+1, d)
	}
	for i, d := range part.VideoDurations {
		add(footage.KindVideo, i+1, d)
	}
	return tl
}

// String renders a compact description for logs.
func (t Timeline) String() string {
	return fmt.Sprintf("p%d: %d segments, %ss", t.ParagraphIndex+1, len(t.Segments), strconv.FormatFloat(t.Total(), 'f', 2, 64))
}
