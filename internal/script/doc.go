// Package script produces the narration script a run is built from.
//
// A Script is an ordered list of paragraphs, each carrying its voiceover text
// and a list of short image descriptions used as stock media queries. Two
// sources exist: LLMSource writes the script paragraph by paragraph (intro,
// body, outro) and FileSource loads a hand-written YAML or JSON file.
// Scripts serialize to the script.json layout kept in each run directory.
package script
