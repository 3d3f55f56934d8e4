package embedding

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// WithLRUCache wraps e so that repeated queries are answered from an expiring
// LRU. Encode is never cached; only EncodeQuery is.
func WithLRUCache(e Embedder, size int, ttl time.Duration) Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Name() string { return l.next.Name() }

func (l *lruEmbedder) Prepare(corpus []string) error {
	if p, ok := l.next.(Preparer); ok {
		if err := p.Prepare(corpus); err != nil {
			return err
		}
	}
	// a refit embedder produces different vectors
	l.cache.Purge()
	return nil
}

func (l *lruEmbedder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return l.next.Encode(ctx, texts)
}

func (l *lruEmbedder) EncodeQuery(ctx context.Context, query string) ([]float32, error) {
	if cached, ok := l.cache.Get(query); ok {
		return cloneVector(cached), nil
	}
	vec, err := EncodeQuery(ctx, l.next, query)
	if err != nil {
		return nil, err
	}
	l.cache.Add(query, cloneVector(vec))
	return vec, nil
}

func cloneVector(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}
	c := make([]float32, len(v))
	copy(c, v)
	return c
}
