package runstore

import (
	"strings"
	"time"
)

// Status is the lifecycle of a run.
type Status string

const (
	StatusPending     Status = "pending"
	StatusScripting   Status = "scripting"
	StatusNarrating   Status = "narrating"
	StatusPlanning    Status = "planning"
	StatusSelecting   Status = "selecting"
	StatusRanking     Status = "ranking"
	StatusDownloading Status = "downloading"
	StatusComposing   Status = "composing"
	StatusRendering   Status = "rendering"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusScripting,
	StatusNarrating,
	StatusPlanning,
	StatusSelecting,
	StatusRanking,
	StatusDownloading,
	StatusComposing,
	StatusRendering,
	StatusCompleted,
	StatusFailed,
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// IsProcessing reports whether the status marks an unfinished run.
func (s Status) IsProcessing() bool {
	return s != StatusCompleted && s != StatusFailed && s != ""
}

// Run is one ledger row.
type Run struct {
	ID           string    `json:"id"`
	Topic        string    `json:"topic"`
	Goal         string    `json:"goal"`
	Status       Status    `json:"status"`
	VideoDir     string    `json:"video_dir"`
	OutputPath   string    `json:"output_path,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Paragraphs   int       `json:"paragraphs"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SelectionRecord is a persisted ranked selection.
type SelectionRecord struct {
	ParagraphIndex    int    `json:"paragraph_index"`
	SlotKey           string `json:"slot_key"`
	URL               string `json:"url"`
	Description       string `json:"description"`
	TargetDescription string `json:"target_description"`
	Attempts          int    `json:"attempts"`
	State             string `json:"state"`
	Fallback          bool   `json:"fallback"`
}
