// Package workspace owns the on-disk layout of a run.
//
// Every run lives in <work_dir>/<video_id>/ with one p<N> directory per
// paragraph holding its script, downloaded media, narration and composite
// clip. A flock on the run directory keeps two processes from working on
// the same run. Stale run directories can be pruned by age.
package workspace
