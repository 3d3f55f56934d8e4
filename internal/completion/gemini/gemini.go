package gemini

import (
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"google.golang.org/genai"

	"ragchat/internal/completion"
	"ragchat/internal/domain"
)

// Client is a completion.Completer backed by the Gemini API.
type Client struct {
	client *genai.Client
}

// Config configures the Gemini completer. BaseURL overrides the API endpoint.
type Config struct {
	APIKeyEnv string
	BaseURL   string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      key,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	contents, config := convert(req)
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, err
	}
	out := &completion.Response{
		Content: strings.TrimSpace(resp.Text()),
		Role:    domain.RoleAssistant,
	}
	if len(resp.Candidates) > 0 {
		out.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}
	if u := resp.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}

func (c *Client) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	contents, config := convert(req)
	ctx, cancel := context.WithCancel(ctx)
	next, stop := iter.Pull2(c.client.Models.GenerateContentStream(ctx, req.Model, contents, config))
	return &stream{next: next, stop: func() { stop(); cancel() }}, nil
}

type stream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func (s *stream) Recv() (completion.Delta, error) {
	resp, err, ok := s.next()
	if !ok {
		return completion.Delta{}, io.EOF
	}
	if err != nil {
		return completion.Delta{}, err
	}
	d := completion.Delta{Content: resp.Text()}
	if len(resp.Candidates) > 0 {
		d.FinishReason = strings.ToLower(string(resp.Candidates[0].FinishReason))
	}
	return d, nil
}

func (s *stream) Close() error {
	s.stop()
	return nil
}

// convert maps chat messages onto Gemini contents. System messages become the
// system instruction; assistant turns use the "model" role.
func convert(req completion.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{
		Temperature:   genai.Ptr(float32(req.Temperature)),
		StopSequences: req.Stop,
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case domain.RoleSystem:
			system = append(system, m.Content)
		case domain.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config
}
