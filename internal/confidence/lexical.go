package confidence

import (
	"context"
	"strings"

	"smartcut/internal/textutil"
)

// LexicalScorer scores with term-frequency cosine similarity. It is used
// when no embedding model is configured.
type LexicalScorer struct{}

// Score returns the lexical cosine between description and keywords.
func (LexicalScorer) Score(_ context.Context, description string, keywords []string) (float64, error) {
	if strings.TrimSpace(description) == "" || len(keywords) == 0 {
		return 0, nil
	}
	a := textutil.NewFingerprint(description)
	b := textutil.NewFingerprint(strings.Join(keywords, " "))
	return textutil.CosineSimilarity(a, b), nil
}
