package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

// Storage is a flat in-memory index using brute-force L2 distance.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

// NewStorage creates an empty flat index for vectors of the given dimension.
func NewStorage(dimension int) (*Storage, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension %d: %w", dimension, domain.ErrInvalidArgument)
	}
	return &Storage{dimension: dimension}, nil
}

// Builder adapts NewStorage to vectorstore.Builder.
func Builder(_ context.Context, dimension int) (vectorstore.Index, error) {
	return NewStorage(dimension)
}

func (s *Storage) Dimension() int { return s.dimension }

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func (s *Storage) Add(_ context.Context, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector %d has dimension %d, want %d: %w", i, len(v), s.dimension, domain.ErrInvalidArgument)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		c := make([]float32, len(v))
		copy(c, v)
		s.vectors = append(s.vectors, c)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, query []float32, k int) ([]float64, []int64, error) {
	if k <= 0 {
		return nil, nil, fmt.Errorf("k %d: %w", k, domain.ErrInvalidArgument)
	}
	if len(query) != s.dimension {
		return nil, nil, fmt.Errorf("query has dimension %d, want %d: %w", len(query), s.dimension, domain.ErrInvalidArgument)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	dists := make([]float64, len(s.vectors))
	for i, v := range s.vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		dists[i] = l2(v, query)
	}
	idxs := argsortAsc(dists)

	distances := make([]float64, k)
	positions := make([]int64, k)
	for i := 0; i < k; i++ {
		if i < len(idxs) {
			distances[i] = dists[idxs[i]]
			positions[i] = int64(idxs[i])
			continue
		}
		distances[i] = math.Inf(1)
		positions[i] = vectorstore.Missing
	}
	return distances, positions, nil
}

func l2(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// argsortAsc orders positions by distance; equal distances keep insertion order.
func argsortAsc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] < vals[idxs[b]] })
	return idxs
}
