package footage

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind distinguishes still images from video clips.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Extension returns the on-disk file extension for the kind.
func (k Kind) Extension() string {
	if k == KindVideo {
		return ".mp4"
	}
	return ".jpg"
}

// SlotKey builds the sequential key for the n-th slot (1-based) of a kind.
func SlotKey(kind Kind, n int) string {
	return string(kind) + strconv.Itoa(n)
}

// ParseSlotKey splits a slot key into its kind and 1-based position.
func ParseSlotKey(key string) (Kind, int, error) {
	for _, kind := range []Kind{KindImage, KindVideo} {
		rest, ok := strings.CutPrefix(key, string(kind))
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			break
		}
		return kind, n, nil
	}
	return "", 0, fmt.Errorf("invalid slot key %q", key)
}

// Candidate is one media item returned by the stock provider.
type Candidate struct {
	URL         string `json:"url"`
	Description string `json:"description"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Quality     string `json:"quality,omitempty"`
	Kind        Kind   `json:"kind"`
	// PageURL is the provider's landing page, kept for attribution.
	PageURL string `json:"page_url,omitempty"`
	// SimilarityScore is the optional 1-9 fit against TargetDescription.
	SimilarityScore   int    `json:"similarity_score,omitempty"`
	TargetDescription string `json:"target_description,omitempty"`
}

// Slot is one display position in a paragraph's visual sequence.
type Slot struct {
	Key        string      `json:"key"`
	Kind       Kind        `json:"kind"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Selected   *Candidate  `json:"selected,omitempty"`
	// Description is the search query that produced the candidates.
	Description string `json:"description,omitempty"`
}

// Filled reports whether the slot has a chosen candidate.
func (s Slot) Filled() bool {
	return s.Selected != nil && s.Selected.URL != ""
}

// CountKind counts slots of the given kind.
func CountKind(slots []Slot, kind Kind) int {
	n := 0
	for _, slot := range slots {
		if slot.Kind == kind {
			n++
		}
	}
	return n
}
