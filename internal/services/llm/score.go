package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"smartcut/internal/services"
	"smartcut/internal/textutil"
)

// Score embeds the description and the joined keywords and returns their
// cosine similarity clamped to [0, 1]. An empty description or keyword list
// scores 0 without a request.
func (c *Client) Score(ctx context.Context, description string, keywords []string) (float64, error) {
	description = strings.TrimSpace(description)
	joined := strings.TrimSpace(strings.Join(keywords, ", "))
	if description == "" || joined == "" {
		return 0, nil
	}
	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: c.cfg.EmbeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{description, joined},
		},
	})
	if err != nil {
		return 0, classify(ctx, "confidence", "embed", err)
	}
	vectors := make([][]float64, 2)
	for _, item := range resp.Data {
		if item.Index >= 0 && item.Index < int64(len(vectors)) {
			vectors[item.Index] = item.Embedding
		}
	}
	if len(vectors[0]) == 0 || len(vectors[1]) == 0 {
		return 0, services.Wrap(services.ErrAnalysis, "confidence", "embed",
			fmt.Sprintf("expected 2 embeddings, got %d", len(resp.Data)), nil)
	}
	return min(max(textutil.CosineVectors(vectors[0], vectors[1]), 0), 1), nil
}
