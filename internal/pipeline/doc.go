// Package pipeline runs one video generation end to end.
//
// Stages run strictly in order: script, narration, plan, select, rank,
// download, compose, render. Selection and ranking finish for every
// paragraph before any media is downloaded, and every clip is composed before
// the final render starts. Each stage transition is recorded in the run
// ledger; a fatal stage error marks the run failed and leaves the workspace
// in place unless cleanup was requested.
//
// Degraded outcomes are not errors: a paragraph whose narration cannot be
// synthesized is skipped, partially filled slots render what they have and a
// failed download drops its slot. Only an unusable plan, an empty render or
// an external tool failure in the final mux abort the run.
package pipeline
