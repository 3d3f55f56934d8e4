package vectorstore

import "context"

// Missing is the index reported for result slots that could not be filled
// because k exceeded the number of stored vectors.
const Missing int64 = -1

// Index stores embeddings by insertion position and answers exact
// k-nearest-neighbor queries under Euclidean distance.
type Index interface {
	Dimension() int
	Len() int
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns exactly k (distance, position) pairs in ascending distance.
	// Slots beyond Len() carry position Missing.
	Search(ctx context.Context, query []float32, k int) ([]float64, []int64, error)
}

// Builder creates an empty index for vectors of the given dimension.
type Builder func(ctx context.Context, dimension int) (Index, error)
