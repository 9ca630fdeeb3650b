// Package selection fills a paragraph's planned image and video slots with
// stock media candidates.
//
// Each search consumes the next description from a cyclic iterator over the
// paragraph's image descriptions. Results are filtered by resolution (and,
// for video, by quality tier and exact frame size) and the first candidates
// whose URL and description are unused in the run are claimed in the shared
// footage.Registry. When a bounded number of full description cycles passes
// without a new candidate, filling stops early and the paragraph keeps the
// slots it has. Slot keys are assigned in fill order: image1, image2, ...
package selection
