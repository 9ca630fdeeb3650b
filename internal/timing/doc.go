// Package timing computes how many image and video clips a paragraph shows
// and how long each one stays on screen.
//
// Allocate is pure and deterministic: the same narration length and
// constraints always produce the same Allocation. Arithmetic runs in integer
// milliseconds so repeated runs never drift on float rounding.
package timing
