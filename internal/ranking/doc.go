// Package ranking picks the best candidate for every slot of a paragraph.
//
// A Judge is asked to choose one of the slot's candidate descriptions (by
// 1-based index) that best fits the paragraph's voiceover, given a
// "co-director suggestion" drawn from a run-wide rotating description cycle.
// Each slot runs a small state machine:
//
//	PENDING -> SELECTED | RETRY | FAILED
//
// RETRY loops back to PENDING after a capped exponential backoff until the
// RetryPolicy's attempt budget is spent. A FAILED slot falls back to the
// selector's first candidate and is marked Fallback.
//
// An optional Scorer attaches a 1-9 similarity score to every candidate
// without touching the run's uniqueness registry.
package ranking
