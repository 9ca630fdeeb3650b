// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Prober: runs ffprobe (command execution is injectable for tests)
//   - Result: parsed streams and format metadata
//
// Prober.Duration is the narration and clip length probe used by the part
// scheduler and the segment composer.
package ffprobe
