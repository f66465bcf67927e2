package genai

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type fakeChatService struct {
	lastParams openai.ChatCompletionNewParams
	content    string
	err        error
}

func (f *fakeChatService) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.lastParams = body
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

type fakeEmbeddingService struct {
	vector []float64
	err    error
}

func (f *fakeEmbeddingService) New(ctx context.Context, body openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &openai.CreateEmbeddingResponse{
		Data: []openai.Embedding{{Embedding: f.vector}},
	}, nil
}

func newTestClient(chat chatService, emb embeddingService) *Client {
	return &Client{
		chat:           chat,
		embeddings:     emb,
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
		timeout:        DefaultTimeout,
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	orig := os.Getenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	defer os.Setenv("OPENAI_API_KEY", orig)

	if _, err := NewClient(); err == nil {
		t.Fatal("expected error when no API key is configured")
	}
	if _, err := NewClient(WithAPIKey("sk-test")); err != nil {
		t.Fatalf("unexpected error with explicit key: %v", err)
	}
}

func TestGenerateStructuredReturnsContent(t *testing.T) {
	chat := &fakeChatService{content: `{"proximo_stage_id":"demo","justificativa":"cliente pediu demo"}`}
	c := newTestClient(chat, &fakeEmbeddingService{})

	schema := map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"proximo_stage_id": map[string]interface{}{"type": "string"}},
	}
	out, err := c.GenerateStructured(context.Background(), "system", "user", "stage_decision", schema)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != chat.content {
		t.Errorf("expected raw content back, got %q", out)
	}
	if chat.lastParams.ResponseFormat.OfJSONSchema == nil {
		t.Fatal("expected json_schema response format to be set")
	}
	if got := chat.lastParams.ResponseFormat.OfJSONSchema.JSONSchema.Name; got != "stage_decision" {
		t.Errorf("expected schema name stage_decision, got %q", got)
	}
}

func TestGenerateStructuredPropagatesErrors(t *testing.T) {
	chat := &fakeChatService{err: errors.New("upstream down")}
	c := newTestClient(chat, &fakeEmbeddingService{})
	if _, err := c.GenerateStructured(context.Background(), "s", "u", "x", nil); err == nil {
		t.Fatal("expected error from failing chat service")
	}

	empty := &fakeChatService{content: ""}
	c = newTestClient(empty, &fakeEmbeddingService{})
	// Empty content is still a valid choice; only zero choices is an error.
	if _, err := c.GenerateStructured(context.Background(), "s", "u", "x", nil); err != nil {
		t.Fatalf("unexpected error for empty content: %v", err)
	}
}

func TestEmbedConvertsVector(t *testing.T) {
	c := newTestClient(&fakeChatService{}, &fakeEmbeddingService{vector: []float64{0.25, -0.5}})
	vec, err := c.Embed(context.Background(), "plano pro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.25 || vec[1] != -0.5 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestEmbedPropagatesErrors(t *testing.T) {
	c := newTestClient(&fakeChatService{}, &fakeEmbeddingService{err: errors.New("quota")})
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error from failing embedding service")
	}
}
