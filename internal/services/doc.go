// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, paragraph numbers and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper, so run failures can be
//     classified consistently in the run ledger.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
