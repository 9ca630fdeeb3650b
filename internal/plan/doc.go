// Package plan turns measured narration lengths into per-paragraph clip plans.
//
// Scheduler probes each paragraph's narration audio, runs the timing
// allocator and collects the resulting PartPlans into a Schedule. Paragraphs
// whose audio is missing or unreadable are skipped with a warning; callers
// treat an absent plan as zero slots for that paragraph. Only a schedule with
// no plans at all is an error (ErrNoUsablePlan).
package plan
