// Package pexels is a small client for the Pexels photo and video search API.
//
// Search results are flattened into footage.Candidates: one per photo, and one
// per video file (all files of a video share its description). Filtering by
// resolution and quality is left to the caller. Video descriptions come from
// the page URL slug because the video API carries no alt text.
package pexels
