package embedding_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/embedding"
)

type countingEmbedder struct {
	calls    int
	prepared int
}

func (c *countingEmbedder) Name() string { return "counting" }

func (c *countingEmbedder) Prepare([]string) error {
	c.prepared++
	return nil
}

func (c *countingEmbedder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), float32(c.calls)}
	}
	return out, nil
}

// queryEmbedder embeds queries through a separate path, like Gemini's task types.
type queryEmbedder struct {
	countingEmbedder
	queries int
}

func (q *queryEmbedder) EncodeQuery(_ context.Context, query string) ([]float32, error) {
	q.queries++
	return []float32{-float32(len(query))}, nil
}

func TestLRUCacheServesRepeatedQueries(t *testing.T) {
	inner := &countingEmbedder{}
	e := embedding.WithLRUCache(inner, 8, time.Minute)
	ctx := context.Background()

	first, err := embedding.EncodeQuery(ctx, e, "what is aes")
	require.NoError(t, err)
	second, err := embedding.EncodeQuery(ctx, e, "what is aes")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	// mutating a returned vector must not poison the cache
	second[0] = -1
	third, err := embedding.EncodeQuery(ctx, e, "what is aes")
	require.NoError(t, err)
	assert.Equal(t, first[0], third[0])
}

func TestLRUCacheNeverCachesEncode(t *testing.T) {
	inner := &countingEmbedder{}
	e := embedding.WithLRUCache(inner, 8, time.Minute)

	for range 2 {
		_, err := e.Encode(context.Background(), []string{"a"})
		require.NoError(t, err)
		_, err = e.Encode(context.Background(), []string{"a", "b"})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, inner.calls)
}

func TestLRUCacheUsesInnerQueryEncoder(t *testing.T) {
	inner := &queryEmbedder{}
	e := embedding.WithLRUCache(inner, 8, time.Minute)
	ctx := context.Background()

	vec, err := embedding.EncodeQuery(ctx, e, "abc")
	require.NoError(t, err)
	_, err = embedding.EncodeQuery(ctx, e, "abc")
	require.NoError(t, err)

	assert.Equal(t, []float32{-3}, vec)
	assert.Equal(t, 1, inner.queries)
	assert.Zero(t, inner.calls)
}

func TestEncodeQueryFallsBackToEncode(t *testing.T) {
	inner := &countingEmbedder{}
	vec, err := embedding.EncodeQuery(context.Background(), inner, "abcd")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1}, vec)
}

func TestLRUCachePrepareForwardsAndPurges(t *testing.T) {
	inner := &countingEmbedder{}
	e := embedding.WithLRUCache(inner, 8, time.Minute)
	ctx := context.Background()

	_, err := embedding.EncodeQuery(ctx, e, "q")
	require.NoError(t, err)

	p, ok := e.(embedding.Preparer)
	require.True(t, ok)
	require.NoError(t, p.Prepare([]string{"corpus"}))
	assert.Equal(t, 1, inner.prepared)

	_, err = embedding.EncodeQuery(ctx, e, "q")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestLRUCacheDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	assert.Same(t, inner, embedding.WithLRUCache(inner, 0, time.Minute))
}
