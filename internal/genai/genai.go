// Package genai wraps the OpenAI API for the sales copilot.
//
// It provides schema-constrained chat completions (structured output) and
// text embeddings. All calls carry a per-request timeout because the
// upstream API has none of its own.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Default configuration for the GenAI client.
const (
	// DefaultModel is the chat model used for all structured calls.
	DefaultModel = openai.ChatModelGPT4oMini
	// DefaultEmbeddingModel is the model used for text embeddings.
	DefaultEmbeddingModel = openai.EmbeddingModelTextEmbedding3Small
	// DefaultTimeout bounds every upstream call.
	DefaultTimeout = 30 * time.Second
	// DefaultTemperature keeps generation close to deterministic.
	DefaultTemperature = 0.1
)

// ClientInterface defines the GenAI operations used by the brain, allowing
// tests to substitute a mock implementation.
type ClientInterface interface {
	// GenerateStructured runs a chat completion constrained to the given
	// JSON schema and returns the raw JSON text of the response.
	GenerateStructured(ctx context.Context, systemPrompt, userPrompt, schemaName string, schema map[string]interface{}) (string, error)

	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// chatService is the minimal surface of the OpenAI chat completion API.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// embeddingService is the minimal surface of the OpenAI embedding API.
type embeddingService interface {
	New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding $OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithEmbeddingModel sets the embedding model.
func WithEmbeddingModel(model string) Option {
	return func(o *Opts) { o.EmbeddingModel = model }
}

// WithTimeout sets the per-call timeout for upstream requests.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI chat completion and embedding services.
type Client struct {
	chat           chatService
	embeddings     embeddingService
	model          string
	embeddingModel string
	timeout        time.Duration
}

// NewClient initializes a new GenAI client, applying any provided options.
// The API key falls back to the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		Model:          DefaultModel,
		EmbeddingModel: DefaultEmbeddingModel,
		Timeout:        DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	slog.Debug("genai.NewClient: configured", "model", cfg.Model, "embedding_model", cfg.EmbeddingModel, "timeout", cfg.Timeout)

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		chat:           &cli.Chat.Completions,
		embeddings:     &cli.Embeddings,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		timeout:        cfg.Timeout,
	}, nil
}

// GenerateStructured runs a chat completion whose output is constrained to
// the provided JSON schema via the strict json_schema response format. The
// returned string is the model's JSON document; callers unmarshal it into
// their own type.
func (c *Client) GenerateStructured(ctx context.Context, systemPrompt, userPrompt, schemaName string, schema map[string]interface{}) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(DefaultTemperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Error("genai.GenerateStructured: completion failed", "error", err, "schema", schemaName)
		return "", fmt.Errorf("structured completion %s failed: %w", schemaName, err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.GenerateStructured: no choices returned", "schema", schemaName)
		return "", fmt.Errorf("structured completion %s returned no choices", schemaName)
	}
	slog.Debug("genai.GenerateStructured: completion succeeded", "schema", schemaName, "length", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for the given text. The signature
// matches chromem's EmbeddingFunc so the client can back vector
// collections directly.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	})
	if err != nil {
		slog.Error("genai.Embed: embedding request failed", "error", err)
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding request returned no data")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}
