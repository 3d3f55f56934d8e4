// Package extract turns document files into plain text, dispatching on file extension.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"ragchat/internal/domain"
)

// Extractor returns the plain text of the file at path.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) { return f(ctx, path) }

// Registry maps lowercase file extensions (".pdf") to extractors.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// DefaultRegistry handles .txt and .pdf.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(".txt", TextExtractor{})
	r.Register(".pdf", PDFExtractor{})
	return r
}

// Register binds ext to e, replacing any previous binding.
func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[normalizeExt(ext)] = e
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.extractors))
	for ext := range r.extractors {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Extract reads path with the extractor registered for its extension.
// Unregistered extensions fail with domain.ErrUnsupportedDocumentType.
func (r *Registry) Extract(ctx context.Context, path string) (domain.Document, error) {
	ext := normalizeExt(filepath.Ext(path))
	e, ok := r.extractors[ext]
	if !ok {
		return domain.Document{}, fmt.Errorf("%s (%q): %w", path, ext, domain.ErrUnsupportedDocumentType)
	}
	text, err := e.Extract(ctx, path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract %s: %w", path, err)
	}
	return domain.Document{Path: path, Content: text}, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
