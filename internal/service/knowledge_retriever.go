package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ragchat/internal/chunker"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/extract"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/memory"
)

// DefaultTopK is the number of chunks retrieved per query when none is configured.
const DefaultTopK = 3

// Options configures NewKnowledgeRetriever. Embedder is required.
type Options struct {
	Extractors   *extract.Registry
	Embedder     embedding.Embedder
	IndexBuilder vectorstore.Builder
	// ChunkSize is the number of words per chunk; zero means chunker.DefaultChunkSize.
	ChunkSize int
	Logger    *zap.Logger
}

// KnowledgeRetriever owns the corpus and its vector index. Both are built once
// by NewKnowledgeRetriever and never modified, so Retrieve is safe for
// concurrent use.
type KnowledgeRetriever struct {
	corpus   domain.Corpus
	embedder embedding.Embedder
	index    vectorstore.Index
	logger   *zap.Logger
}

// NewKnowledgeRetriever loads every path in order, chunks it, embeds all
// chunks in one batch and builds the index. Paths whose extension has no
// extractor are logged and skipped.
func NewKnowledgeRetriever(ctx context.Context, paths []string, opts Options) (*KnowledgeRetriever, error) {
	if opts.Embedder == nil {
		return nil, fmt.Errorf("embedder is required: %w", domain.ErrInvalidArgument)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = chunker.DefaultChunkSize
	}
	if opts.ChunkSize < 0 {
		return nil, fmt.Errorf("chunk size %d: %w", opts.ChunkSize, domain.ErrInvalidArgument)
	}
	if opts.Extractors == nil {
		opts.Extractors = extract.DefaultRegistry()
	}
	if opts.IndexBuilder == nil {
		opts.IndexBuilder = memory.Builder
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := &KnowledgeRetriever{embedder: opts.Embedder, logger: opts.Logger}
	corpus, err := r.load(ctx, paths, opts.Extractors, opts.ChunkSize)
	if err != nil {
		return nil, err
	}
	r.corpus = corpus
	if err := r.buildIndex(ctx, opts.IndexBuilder); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *KnowledgeRetriever) load(ctx context.Context, paths []string, extractors *extract.Registry, chunkSize int) (domain.Corpus, error) {
	var corpus domain.Corpus
	for _, path := range paths {
		doc, err := extractors.Extract(ctx, path)
		if errors.Is(err, domain.ErrUnsupportedDocumentType) {
			r.logger.Warn("skipping document with unsupported type",
				zap.String("path", path),
				zap.Strings("supported", extractors.Extensions()),
			)
			continue
		}
		if err != nil {
			return domain.Corpus{}, err
		}
		chunks, err := chunker.Collect(doc.Content, chunkSize)
		if err != nil {
			return domain.Corpus{}, err
		}
		corpus.Append(doc.Path, chunks)
		r.logger.Debug("document loaded", zap.String("path", doc.Path), zap.Int("chunks", len(chunks)))
	}
	return corpus, nil
}

func (r *KnowledgeRetriever) buildIndex(ctx context.Context, build vectorstore.Builder) error {
	if r.corpus.Len() == 0 {
		r.logger.Warn("corpus is empty; retrieval will return no results")
		return nil
	}
	if p, ok := r.embedder.(embedding.Preparer); ok {
		err := p.Prepare(r.corpus.Chunks)
		if errors.Is(err, embedding.ErrNoVocabulary) {
			r.logger.Warn("corpus has no indexable terms; retrieval will return no results",
				zap.Int("chunks", r.corpus.Len()),
				zap.String("embedder", r.embedder.Name()),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("prepare embedder: %w", err)
		}
	}
	vectors, err := r.embedder.Encode(ctx, r.corpus.Chunks)
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != r.corpus.Len() {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), r.corpus.Len())
	}
	index, err := build(ctx, len(vectors[0]))
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := index.Add(ctx, vectors); err != nil {
		return fmt.Errorf("populate index: %w", err)
	}
	r.index = index
	r.logger.Info("knowledge index built",
		zap.String("embedder", r.embedder.Name()),
		zap.Int("chunks", r.corpus.Len()),
		zap.Int("dimension", index.Dimension()),
	)
	return nil
}

// Retrieve returns up to topK chunks nearest to query, closest first.
// A topK larger than the corpus is clamped to the corpus size.
func (r *KnowledgeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k %d: %w", topK, domain.ErrInvalidArgument)
	}
	n := r.corpus.Len()
	if n == 0 || r.index == nil {
		return nil, nil
	}
	if topK > n {
		r.logger.Warn("top_k exceeds corpus size, clamping", zap.Int("top_k", topK), zap.Int("corpus", n))
		topK = n
	}
	qvec, err := embedding.EncodeQuery(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	distances, ids, err := r.index.Search(ctx, qvec, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(ids))
	for i, id := range ids {
		if id < 0 || id >= int64(n) {
			r.logger.Warn("dropping invalid search hit",
				zap.Int64("index", id),
				zap.Error(domain.ErrIndexOutOfRange),
			)
			continue
		}
		results = append(results, domain.RetrievalResult{
			Content:  r.corpus.Chunks[id],
			Source:   r.corpus.Sources[id],
			Distance: distances[i],
		})
	}
	return results, nil
}

// Corpus returns a copy of the loaded chunks and their sources.
func (r *KnowledgeRetriever) Corpus() domain.Corpus {
	return domain.Corpus{
		Chunks:  append([]string(nil), r.corpus.Chunks...),
		Sources: append([]string(nil), r.corpus.Sources...),
	}
}

// Len returns the number of indexed chunks.
func (r *KnowledgeRetriever) Len() int { return r.corpus.Len() }
