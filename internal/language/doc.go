// Package language maps the narration language setting onto ISO 639-1 codes
// and display names.
//
// Config accepts "en", "eng", "english" or "en-US" alike; everything downstream
// (title casing, LLM prompts) sees the normalized 2-letter code.
package language
