// Package download fetches ranked media into the run workspace.
//
// Images are resized preserving aspect ratio and center-cropped to the exact
// output frame with ffmpeg; videos are stored as downloaded since selection
// only accepts files at the exact frame size. Jobs run in parallel with a
// bounded errgroup. A failed job is logged and reported in its Result; it
// never aborts the batch.
package download
