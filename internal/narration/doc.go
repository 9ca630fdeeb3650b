// Package narration turns paragraph text into narration audio.
//
// CommandSynthesizer runs an external text-to-speech program (piper,
// espeak-ng, ...) with the text on stdin. Narrator wraps a Synthesizer and
// appends the configured trailing silence with ffmpeg's apad filter, so the
// stored audio.wav already covers the paragraph's full visual sequence.
package narration
