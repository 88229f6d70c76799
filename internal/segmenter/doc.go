// Package segmenter splits a video timeline into scene ranges.
//
// An initial detection pass runs over the whole timeline. Ranges that come
// close to the maximum segment length are re-detected at descending
// thresholds, gaps between ranges are filled with synthetic ranges that get
// the same refinement, and the result must cover enough of the timeline to
// be usable.
package segmenter
