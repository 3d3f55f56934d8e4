package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Client is an OpenAI-compatible embeddings client implementing embedding.Embedder.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	batchSize   int
	concurrency int
	client      *http.Client
	maxRetries  int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Timeout     time.Duration
	BatchSize   int
	Concurrency int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      key,
		model:       cfg.Model,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		client:      &http.Client{Timeout: cfg.Timeout},
		maxRetries:  5,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Encode embeds texts in batches, running up to Concurrency requests at once.
// Output order always matches input order.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		g.Go(func() error {
			vecs, err := c.embedBatch(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]any{"model": c.model, "input": batch})
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}
	url := c.baseURL + "/embeddings"
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build embedding request failed: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if attempt < c.maxRetries && ctx.Err() == nil {
				if err := sleep(ctx, retryDelay(attempt)); err != nil {
					return nil, err
				}
				continue
			}
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}

		payload, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
			}
			delay := retryDelay(attempt)
			// respect Retry-After if provided
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				delay = time.Duration(secs) * time.Second
			}
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("openai embeddings failed: %s: %s", resp.Status, strings.TrimSpace(string(payload)))
		}
		if readErr != nil {
			return nil, fmt.Errorf("read embedding response failed: %w", readErr)
		}
		return decodeEmbeddings(payload, len(batch))
	}
}

func decodeEmbeddings(payload []byte, want int) ([][]float32, error) {
	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	if len(parsed.Data) != want {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(parsed.Data), want)
	}
	out := make([][]float32, want)
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= want || out[idx] != nil {
			// providers that omit index return data in input order
			idx = i
		}
		if len(d.Embedding) == 0 {
			return nil, errors.New("empty embedding")
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// exponential backoff capped at 5s
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
