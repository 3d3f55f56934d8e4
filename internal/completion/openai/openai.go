package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"ragchat/internal/completion"
	"ragchat/internal/domain"
)

// DefaultBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// Config configures the OpenAI-compatible chat client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	// Timeout bounds non-streaming calls; streams are bounded by the caller's context.
	Timeout time.Duration
}

// Client talks to any /chat/completions endpoint speaking the OpenAI wire format
// (Groq, OpenAI, Ollama, vLLM).
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     key,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
	}, nil
}

type chatRequest struct {
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
	Stream      bool             `json:"stream"`
}

func (c *Client) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.post(ctx, req, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read llm response failed: %w", err)
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty llm choices")
	}
	choice := parsed.Choices[0]
	role := domain.Role(choice.Message.Role)
	if role == "" {
		role = domain.RoleAssistant
	}
	return &completion.Response{
		Content:          choice.Message.Content,
		FinishReason:     choice.FinishReason,
		Role:             role,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		TotalTokens:      parsed.Usage.TotalTokens,
	}, nil
}

func (c *Client) Stream(ctx context.Context, req completion.Request) (completion.Stream, error) {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	return &sseStream{body: resp.Body, scanner: scanner}, nil
}

func (c *Client) post(ctx context.Context, req completion.Request, stream bool) (*http.Response, error) {
	bodyBytes, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stop:        req.Stop,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal llm request failed: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build llm request failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("llm response status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *sseStream) Recv() (completion.Delta, error) {
	for !s.done && s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.done = true
			break
		}
		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason *string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return completion.Delta{}, fmt.Errorf("parse llm stream chunk failed: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		d := completion.Delta{Content: chunk.Choices[0].Delta.Content}
		if fr := chunk.Choices[0].FinishReason; fr != nil {
			d.FinishReason = *fr
		}
		return d, nil
	}
	if err := s.scanner.Err(); err != nil {
		return completion.Delta{}, fmt.Errorf("scan llm stream failed: %w", err)
	}
	s.done = true
	return completion.Delta{}, io.EOF
}

func (s *sseStream) Close() error { return s.body.Close() }
