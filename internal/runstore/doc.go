// Package runstore persists the run ledger in SQLite.
//
// Each generate invocation is recorded as a run with its lifecycle status,
// the per-paragraph clip plans and the ranked selections. The ledger backs
// the runs command and lets render rebuild a run's clips from the plans
// recorded at generation time. The database lives at
// <state_dir>/reelsmith.db and uses WAL mode with busy retries.
package runstore
