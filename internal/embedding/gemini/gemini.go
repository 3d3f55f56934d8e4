package gemini

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// Embedder embeds texts with the Gemini embeddings API.
type Embedder struct {
	client    *genai.Client
	model     string
	batchSize int
}

const (
	documentTask = "RETRIEVAL_DOCUMENT"
	queryTask    = "RETRIEVAL_QUERY"
)

// Config configures the Gemini embedder. BaseURL overrides the API endpoint.
type Config struct {
	APIKeyEnv string
	Model     string
	BatchSize int
	BaseURL   string
}

// NewEmbedder creates a Gemini embedder; the API key is read from cfg.APIKeyEnv.
func NewEmbedder(ctx context.Context, cfg Config) (*Embedder, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-004"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Embedder{client: client, model: cfg.Model, batchSize: cfg.BatchSize}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini:" + e.model }

// Encode embeds documents in batches of BatchSize contents per request.
func (e *Embedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embed(ctx, texts[start:end], documentTask)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// EncodeQuery embeds a search query with the retrieval query task type.
func (e *Embedder) EncodeQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{query}, queryTask)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{TaskType: task})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings, want %d", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}
