package chunker_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/chunker"
	"ragchat/internal/domain"
)

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{name: "empty text", text: "", size: 3, want: nil},
		{name: "whitespace only", text: " \n\t ", size: 3, want: nil},
		{name: "exact multiple", text: "a b c d", size: 2, want: []string{"a b", "c d"}},
		{name: "single word remainder", text: "a b c", size: 2, want: []string{"a b", "c"}},
		{name: "collapses whitespace", text: "  AES\tis\n a   block cipher ", size: 10, want: []string{"AES is a block cipher"}},
		{name: "size one", text: "x y", size: 1, want: []string{"x", "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chunker.Collect(tt.text, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunkInvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := chunker.Chunk("some text", size)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
}

func TestChunkReconstructsWords(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 37)
	for _, size := range []int{1, 2, 7, 50, 500} {
		chunks, err := chunker.Collect(text, size)
		require.NoError(t, err)
		for i, ch := range chunks {
			n := len(strings.Fields(ch))
			if i < len(chunks)-1 {
				assert.Equal(t, size, n)
			} else {
				assert.LessOrEqual(t, n, size)
				assert.Positive(t, n)
			}
		}
		assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
	}
}

func TestChunkIsRestartable(t *testing.T) {
	seq, err := chunker.Chunk("one two three four five", 2)
	require.NoError(t, err)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestChunkStopsEarly(t *testing.T) {
	seq, err := chunker.Chunk("a b c d e f", 1)
	require.NoError(t, err)
	var seen []string
	for ch := range seq {
		seen = append(seen, ch)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}
