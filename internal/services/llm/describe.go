package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"

	"smartcut/internal/logging"
	"smartcut/internal/services"
)

// Description is what the vision model reports for a batch of frames.
type Description struct {
	Text     string   `json:"description"`
	Keywords []string `json:"keywords"`
}

const describeSystemPrompt = "You describe short video segments from sampled frames. " +
	"Respond with JSON only."

const describeUserPrompt = "These frames are sampled in order from one continuous video segment. " +
	"Write one or two sentences describing what happens, then list concrete keywords " +
	"(subjects, places, actions, objects), lower case, one to three words each. " +
	`Output format: {"description":"...","keywords":["...","..."]}`

// Describe sends frames to the vision model and parses its description.
func (c *Client) Describe(ctx context.Context, frames []string) (Description, error) {
	if len(frames) == 0 {
		return Description{}, services.Wrap(services.ErrAnalysis, "analysis", "describe", "no frames", nil)
	}
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(frames)+1)
	parts = append(parts, openai.TextContentPart(describeUserPrompt))
	for _, frame := range frames {
		url, err := dataURL(frame)
		if err != nil {
			return Description{}, services.Wrap(services.ErrExternalTool, "analysis", "read frame", frame, err)
		}
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    url,
			Detail: "low",
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(describeSystemPrompt),
			openai.UserMessage(parts),
		},
		Temperature: openai.Float(c.cfg.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "segment_description",
					Strict: openai.Bool(true),
					Schema: descriptionSchema(),
				},
			},
		},
	}
	if c.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.cfg.MaxTokens))
	}

	content, err := c.complete(ctx, params, "llm describe")
	if err != nil && ctx.Err() == nil && shouldFallbackJSONMode(err) {
		c.logger.Debug("json_schema rejected; retrying with json_object", logging.Error(err))
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		}
		content, err = c.complete(ctx, params, "llm describe")
	}
	if err != nil {
		return Description{}, classify(ctx, "analysis", "describe", err)
	}

	var parsed Description
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return Description{}, services.Wrap(services.ErrAnalysis, "analysis", "describe", "parse payload", err)
	}
	parsed.Text = strings.TrimSpace(parsed.Text)
	if parsed.Text == "" {
		return Description{}, services.Wrap(services.ErrAnalysis, "analysis", "describe",
			fmt.Sprintf("empty description (payload snippet: %s)", snippet(content)), nil)
	}
	return parsed, nil
}

func descriptionSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"description", "keywords"},
		"properties": map[string]any{
			"description": map[string]any{"type": "string"},
			"keywords": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	}
}

func dataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
