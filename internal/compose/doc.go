// Package compose turns a paragraph's scheduled slots into one composite clip.
//
// BuildTimeline orders the slot files exactly as scheduled (images, then
// videos) and computes crossfade start offsets. Composer renders the timeline
// with a single ffmpeg invocation: stills are looped, videos trimmed, every
// input is fitted to the output frame and adjacent inputs are joined with
// chained xfade filters.
package compose
