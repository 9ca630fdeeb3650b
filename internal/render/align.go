package render

import "math"

// Alignment is the padding applied to each track before muxing.
type Alignment struct {
	VideoSeconds float64 `json:"video_seconds"`
	AudioSeconds float64 `json:"audio_seconds"`
	// PadBefore and PadAfter extend the video by holding its first and last frame.
	PadBefore float64 `json:"pad_before"`
	PadAfter  float64 `json:"pad_after"`
	// AudioPad is trailing silence appended to the narration.
	AudioPad float64 `json:"audio_pad"`
}

// TotalSeconds returns the muxed output length.
func (a Alignment) TotalSeconds() float64 {
	return math.Max(a.VideoSeconds+a.PadBefore+a.PadAfter, a.AudioSeconds+a.AudioPad)
}

// NeedsPadding reports whether either track is modified.
func (a Alignment) NeedsPadding() bool {
	return a.PadBefore > 0 || a.PadAfter > 0 || a.AudioPad > 0
}

// Align computes the padding plan for the given track lengths.
func Align(videoSeconds, audioSeconds float64) Alignment {
	videoSeconds = nonNegative(videoSeconds)
	audioSeconds = nonNegative(audioSeconds)
	a := Alignment{VideoSeconds: videoSeconds, AudioSeconds: audioSeconds}
	switch {
	case videoSeconds < audioSeconds:
		half := (audioSeconds - videoSeconds) / 2
		a.PadBefore, a.PadAfter = half, half
	case audioSeconds < videoSeconds:
		a.AudioPad = videoSeconds - audioSeconds
	}
	return a
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
