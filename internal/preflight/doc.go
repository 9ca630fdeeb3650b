// Package preflight provides readiness checks for the external services,
// binaries and filesystem paths that reelsmith depends on.
//
// These checks run in two contexts:
//   - "reelsmith generate" calls RequireReady before creating a run so a
//     missing ffmpeg or unwritable work directory fails in milliseconds
//     instead of after the script and narration have been paid for.
//   - "reelsmith status" calls RunAll, which adds live probes against the
//     Pexels API and the LLM endpoint, and renders the results as a table.
package preflight
