// Package merge harmonizes analysed segments by folding adjacent segments
// whose keywords and confidence agree into longer ones.
//
// Merging is deterministic and makes no external calls; the same input
// always yields the same spans, keywords, and provenance (UIDs of merged
// outputs are fresh on every call).
package merge
