package timing

import (
	"math"

	"reelsmith/internal/config"
)

// Inputs describes the measured narration of one paragraph.
type Inputs struct {
	NarrationSeconds float64
}

// Constraints bounds the allocation for both media kinds.
type Constraints struct {
	SilenceSeconds   float64
	CrossfadeSeconds float64
	ImageShare       float64
	VideoShare       float64
	MinImages        int
	MinVideos        int
	MinImageSeconds  float64
	MaxImageSeconds  float64
	MinVideoSeconds  float64
	MaxVideoSeconds  float64
}

// FromConfig maps the [timing] section onto allocator constraints.
func FromConfig(t config.Timing) Constraints {
	return Constraints{
		SilenceSeconds:   t.SilenceSeconds,
		CrossfadeSeconds: t.CrossfadeSeconds,
		ImageShare:       t.ImageShare,
		VideoShare:       t.VideoShare,
		MinImages:        t.MinImages,
		MinVideos:        t.MinVideos,
		MinImageSeconds:  t.MinImageSeconds,
		MaxImageSeconds:  t.MaxImageSeconds,
		MinVideoSeconds:  t.MinVideoSeconds,
		MaxVideoSeconds:  t.MaxVideoSeconds,
	}
}

// Clips is the allocation for one media kind.
type Clips struct {
	Count   int
	Seconds float64
	// BudgetSeconds is the share of the sequence the clips were sized against.
	BudgetSeconds float64
	// Fallback is set when the budget could not hold a single minimum-length
	// clip and the minimum count at minimum duration was used instead.
	Fallback bool
}

// Durations expands the allocation into one duration per slot.
func (c Clips) Durations() []float64 {
	if c.Count <= 0 {
		return nil
	}
	out := make([]float64, c.Count)
	for i := range out {
		out[i] = c.Seconds
	}
	return out
}

// TotalSeconds is the summed display time before crossfade overlap.
func (c Clips) TotalSeconds() float64 {
	if c.Count <= 0 {
		return 0
	}
	return float64(c.Count) * c.Seconds
}

// Allocation is the allocator result for one paragraph.
type Allocation struct {
	SequenceSeconds float64
	Images          Clips
	Videos          Clips
}

// Allocate sizes the image and video clips for one paragraph.
//
// The visual sequence must cover the narration plus trailing silence. Each
// kind receives share*T_s minus the crossfade overlap reserved between its
// minimum number of clips. That budget is split into as many minimum-length
// clips as fit, and the leftover is spread evenly across them, capped at the
// kind's maximum.
func Allocate(in Inputs, c Constraints) Allocation {
	narrationMS := toMillis(in.NarrationSeconds)
	sequenceMS := narrationMS + toMillis(c.SilenceSeconds)
	crossfadeMS := toMillis(c.CrossfadeSeconds)

	return Allocation{
		SequenceSeconds: fromMillis(sequenceMS),
		Images: allocateKind(sequenceMS, crossfadeMS, c.ImageShare, c.MinImages,
			toMillis(c.MinImageSeconds), toMillis(c.MaxImageSeconds)),
		Videos: allocateKind(sequenceMS, crossfadeMS, c.VideoShare, c.MinVideos,
			toMillis(c.MinVideoSeconds), toMillis(c.MaxVideoSeconds)),
	}
}

func allocateKind(sequenceMS, crossfadeMS int64, share float64, minCount int, minMS, maxMS int64) Clips {
	share = clampShare(share)
	// A minimum of zero is legal: the budget then gains one crossfade and the
	// fallback allocates nothing.
	minCount = max(minCount, 0)
	if share == 0 {
		return Clips{}
	}

	fallback := Clips{Count: minCount, Seconds: fromMillis(minMS), Fallback: true}
	if minMS <= 0 {
		// Without a positive minimum nothing can be divided; use the
		// maximum (or one second) as the only viable length.
		fallback.Seconds = fromMillis(max(maxMS, 1000))
		return fallback
	}
	if maxMS < minMS {
		return fallback
	}

	budgetMS := int64(math.Round(share*float64(sequenceMS) - share*float64(minCount-1)*float64(crossfadeMS)))
	fallback.BudgetSeconds = fromMillis(budgetMS)
	if budgetMS <= 0 {
		return fallback
	}
	count := budgetMS / minMS
	if count == 0 {
		return fallback
	}
	clipMS := min(minMS+(budgetMS-count*minMS)/count, maxMS)
	return Clips{
		Count:         int(count),
		Seconds:       fromMillis(clipMS),
		BudgetSeconds: fromMillis(budgetMS),
	}
}

func clampShare(share float64) float64 {
	switch {
	case math.IsNaN(share), share <= 0:
		return 0
	case share >= 1:
		return 1
	default:
		return share
	}
}

func toMillis(seconds float64) int64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return 0
	}
	return int64(math.Round(seconds * 1000))
}

func fromMillis(ms int64) float64 {
	return float64(ms) / 1000
}
