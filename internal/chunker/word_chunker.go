package chunker

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"ragchat/internal/domain"
)

// DefaultChunkSize is the number of words per chunk when none is configured.
const DefaultChunkSize = 500

// Chunk splits text on whitespace and groups consecutive words into
// non-overlapping chunks of size words. The last chunk may be shorter.
// The returned sequence is lazy and can be ranged over any number of times.
func Chunk(text string, size int) (iter.Seq[string], error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size %d: %w", size, domain.ErrInvalidArgument)
	}
	return func(yield func(string) bool) {
		words := strings.Fields(text)
		for i := 0; i < len(words); i += size {
			end := min(i+size, len(words))
			if !yield(strings.Join(words[i:end], " ")) {
				return
			}
		}
	}, nil
}

// Collect materializes every chunk of text.
func Collect(text string, size int) ([]string, error) {
	seq, err := Chunk(text, size)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}
