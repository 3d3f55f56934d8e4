package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoVocabulary is returned by Prepare when the corpus has no indexable terms.
var ErrNoVocabulary = errors.New("no indexable terms in corpus")

// Embedder maps texts to fixed-dimension dense vectors.
// Encode must be deterministic for the same input and model.
type Embedder interface {
	Name() string
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Preparer is implemented by embedders that must be fitted on the corpus
// before they can encode anything.
type Preparer interface {
	Prepare(corpus []string) error
}

// QueryEncoder is implemented by embedders that embed search queries
// differently from the documents they are matched against.
type QueryEncoder interface {
	EncodeQuery(ctx context.Context, query string) ([]float32, error)
}

// EncodeQuery embeds one search query, through QueryEncoder when e has it.
func EncodeQuery(ctx context.Context, e Embedder, query string) ([]float32, error) {
	if q, ok := e.(QueryEncoder); ok {
		return q.EncodeQuery(ctx, query)
	}
	vecs, err := e.Encode(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%s returned %d vectors for one query", e.Name(), len(vecs))
	}
	return vecs[0], nil
}
