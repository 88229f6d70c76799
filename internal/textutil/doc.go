// Package textutil provides the text processing used by segment analysis and
// harmonization.
//
// The primary use cases are:
//   - Folding keyword sets into token sets and comparing them with Jaccard similarity
//   - Normalizing model keywords (case, duplicates, synonyms, forbidden terms, limits)
//   - Deriving keywords from source file names
//   - Lexical fingerprints and cosine similarity for offline confidence scoring
//   - Sanitizing filenames for safe filesystem use
//
// Case folding goes through golang.org/x/text/cases so non-ASCII keywords
// compare the same way regardless of the model's capitalization.
package textutil
