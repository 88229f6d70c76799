package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"smartcut/internal/accel"
	"smartcut/internal/config"
	"smartcut/internal/logging"
	"smartcut/internal/services"
)

const (
	defaultHTTPTimeout = 120 * time.Second
	defaultMaxRetries  = 2
)

// Config captures the runtime settings required to talk to the backend.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
	TimeoutSeconds int
	Temperature    float64
	MaxTokens      int
}

// ConfigFromSettings maps the [llm] configuration section.
func ConfigFromSettings(cfg config.LLM) Config {
	return Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		TimeoutSeconds: cfg.TimeoutSeconds,
		Temperature:    cfg.Temperature,
		MaxTokens:      cfg.MaxTokens,
	}
}

// Client wraps the chat completion, embedding, and model endpoints.
type Client struct {
	cfg    Config
	api    openai.Client
	logger *slog.Logger

	httpClient *http.Client
	maxRetries int
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxRetries overrides the SDK transport retry count (defaults to 2).
func WithMaxRetries(retries int) Option {
	return func(c *Client) {
		if retries >= 0 {
			c.maxRetries = retries
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "llm")
	}
}

// NewClient constructs a client. Blank fields keep the SDK defaults.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			EmbeddingModel: strings.TrimSpace(cfg.EmbeddingModel),
			TimeoutSeconds: cfg.TimeoutSeconds,
			Temperature:    cfg.Temperature,
			MaxTokens:      cfg.MaxTokens,
		},
		logger:     logging.NewNop(),
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(client)
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(client.cfg.APIKey),
		option.WithHTTPClient(client.httpClient),
		option.WithMaxRetries(client.maxRetries),
	}
	if client.cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(client.cfg.BaseURL))
	}
	client.api = openai.NewClient(requestOpts...)
	return client
}

// ModelName returns the configured vision model.
func (c *Client) ModelName() string {
	return c.cfg.Model
}

// Load checks that the vision model is served and returns a handle for the
// stage run. Remote models hold no local memory, so releasing the handle only
// logs.
func (c *Client) Load(ctx context.Context) (*accel.Handle, error) {
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "analysis", "load model", "llm.api_key is not set", nil)
	}
	model, err := c.api.Models.Get(ctx, c.cfg.Model)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrResource, "analysis", "load model", c.cfg.Model, err)
	}
	c.logger.Info("model ready", logging.String("model", model.ID), logging.String("owned_by", model.OwnedBy))
	name := c.cfg.Model
	return accel.NewHandle(name, func() {
		c.logger.Debug("model released", logging.String("model", name))
	}), nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	params := openai.ChatCompletionNewParams{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You must respond with JSON only."),
			openai.UserMessage(`Respond with {"ok":true}`),
		},
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: "json_object"},
		},
	}
	content, err := c.complete(ctx, params, "llm health")
	if err != nil {
		return classify(ctx, "preflight", "health", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q)", e.Op, e.FinishReason, e.Refusal)
}

// complete runs one chat completion and returns the first choice's content.
func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams, op string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &emptyContentError{Op: op, FinishReason: "no choices"}
	}
	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", &emptyContentError{Op: op, FinishReason: choice.FinishReason, Refusal: choice.Message.Refusal}
	}
	return content, nil
}

// classify tags a request failure. Rejected credentials are a configuration
// problem and an unreachable, overloaded or rate-limited backend is a
// resource problem; both abort the run. Only a reply the backend did produce
// but that cannot be used fails the current segment.
func classify(ctx context.Context, stage, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch code := apiErr.StatusCode; {
		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, stage, op, "backend rejected the api key", err)
		case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout, code >= http.StatusInternalServerError:
			return services.Wrap(services.ErrResource, stage, op, fmt.Sprintf("backend unavailable (status %d)", code), err)
		}
		return services.Wrap(services.ErrAnalysis, stage, op, "", err)
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return services.Wrap(services.ErrAnalysis, stage, op, "", err)
	}
	return services.Wrap(services.ErrResource, stage, op, "backend unreachable", err)
}

// shouldFallbackJSONMode reports whether the backend rejected a json_schema
// response format.
func shouldFallbackJSONMode(err error) bool {
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case msg == "":
		return false
	case strings.Contains(msg, "json_schema"), strings.Contains(msg, "response_format"):
		return true
	default:
		return strings.Contains(msg, "unsupported") && strings.Contains(msg, "schema")
	}
}
