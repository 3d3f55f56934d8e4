package memory_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/memory"
)

func newIndex(t *testing.T, vectors ...[]float32) *memory.Storage {
	t.Helper()
	s, err := memory.NewStorage(2)
	require.NoError(t, err)
	require.NoError(t, s.Add(context.Background(), vectors))
	return s
}

func TestNewStorageRejectsBadDimension(t *testing.T) {
	_, err := memory.NewStorage(0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	s, err := memory.NewStorage(2)
	require.NoError(t, err)
	err = s.Add(context.Background(), [][]float32{{1, 2}, {1, 2, 3}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Zero(t, s.Len())
}

func TestSearchOrdersByDistance(t *testing.T) {
	s := newIndex(t, []float32{10, 0}, []float32{0, 0}, []float32{3, 4})

	dists, ids, err := s.Search(context.Background(), []float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 0}, ids)
	assert.InDeltaSlice(t, []float64{0, 5, 10}, dists, 1e-9)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	s := newIndex(t, []float32{1, 0}, []float32{0, 1}, []float32{-1, 0})

	_, ids, err := s.Search(context.Background(), []float32{0, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2}, ids)
}

func TestSearchPadsWhenKExceedsSize(t *testing.T) {
	s := newIndex(t, []float32{1, 1})

	dists, ids, err := s.Search(context.Background(), []float32{1, 1}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, vectorstore.Missing, vectorstore.Missing}, ids)
	assert.Zero(t, dists[0])
	assert.True(t, math.IsInf(dists[1], 1))
}

func TestSearchValidatesArguments(t *testing.T) {
	s := newIndex(t, []float32{1, 1})
	_, _, err := s.Search(context.Background(), []float32{1, 1}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, _, err = s.Search(context.Background(), []float32{1}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAddCopiesVectors(t *testing.T) {
	v := []float32{1, 1}
	s := newIndex(t, v)
	v[0] = 100
	dists, _, err := s.Search(context.Background(), []float32{1, 1}, 1)
	require.NoError(t, err)
	assert.Zero(t, dists[0])
}
