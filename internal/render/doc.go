// Package render concatenates paragraph clips and narration into the final
// video.
//
// Align decides how the two tracks are reconciled: when the picture is short
// the deficit is split evenly before and after it (first and last frames are
// held), when the narration is short it gets trailing silence. Narration is
// never trimmed or looped.
package render
