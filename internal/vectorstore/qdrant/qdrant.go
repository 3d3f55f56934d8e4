package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

// Storage is a minimal REST client to Qdrant.
// The collection is recreated on Init with Euclid distance, and point ids are
// insertion positions so search hits map straight back to corpus positions.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client

	mu    sync.Mutex
	count int
}

// Config contains connection details for a Qdrant instance.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// Builder returns a vectorstore.Builder that recreates the configured collection.
func Builder(cfg Config) vectorstore.Builder {
	return func(ctx context.Context, dimension int) (vectorstore.Index, error) {
		s := NewStorage(cfg)
		if err := s.Init(ctx, dimension); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Init drops any previous collection and creates an empty one.
func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("dimension %d: %w", dimension, domain.ErrInvalidArgument)
	}
	s.dimension = dimension
	if err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil); err != nil && !errors.Is(err, errNotFound) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Euclid",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(), body, nil)
}

func (s *Storage) Dimension() int { return s.dimension }

func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Storage) Add(ctx context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector %d has dimension %d, want %d: %w", i, len(v), s.dimension, domain.ErrInvalidArgument)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	points := make([]map[string]any, len(vectors))
	for i, v := range vectors {
		points[i] = map[string]any{
			"id":     s.count + i,
			"vector": v,
		}
	}
	body := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil); err != nil {
		return err
	}
	s.count += len(vectors)
	return nil
}

func (s *Storage) Search(ctx context.Context, query []float32, k int) ([]float64, []int64, error) {
	if k <= 0 {
		return nil, nil, fmt.Errorf("k %d: %w", k, domain.ErrInvalidArgument)
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": false,
	}
	var resp struct {
		Result []struct {
			ID    int64   `json:"id"`
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, nil, err
	}
	distances := make([]float64, k)
	ids := make([]int64, k)
	for i := 0; i < k; i++ {
		if i < len(resp.Result) {
			// for Euclid collections the score is the distance itself
			distances[i] = resp.Result[i].Score
			ids[i] = resp.Result[i].ID
			continue
		}
		distances[i] = math.Inf(1)
		ids[i] = vectorstore.Missing
	}
	return distances, ids, nil
}

var errNotFound = errors.New("qdrant: not found")

func (s *Storage) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

func (s *Storage) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s: %w", method, url, errNotFound)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
