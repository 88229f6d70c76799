// Package confidence scores how well each segment's keywords match its
// description and folds keywords derived from the source file name into the
// segment.
package confidence
