package textutil

import "strings"

// KeywordTokens flattens keywords into the set of folded, punctuation-free
// whitespace tokens. "Sun-set beach" yields {sun, set, beach}.
func KeywordTokens(keywords []string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, keyword := range keywords {
		for _, token := range strings.Fields(stripPunctuation(Fold(keyword))) {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}

// Jaccard returns |A∩B| / |A∪B| over the keyword token sets of a and b.
// Two empty sets have similarity 0.
func Jaccard(a, b []string) float64 {
	left := KeywordTokens(a)
	right := KeywordTokens(b)
	if len(left) == 0 && len(right) == 0 {
		return 0
	}
	intersection := 0
	for token := range left {
		if _, ok := right[token]; ok {
			intersection++
		}
	}
	union := len(left) + len(right) - intersection
	return float64(intersection) / float64(union)
}
