package summarizer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ragchat/internal/summarizer"
	"ragchat/internal/textutil"
)

func TestSummarizeShortTextIsKept(t *testing.T) {
	s := summarizer.NewFrequencySummarizer()
	assert.Equal(t, "One. Two.", s.Summarize("One. Two.", 3))
	assert.Empty(t, s.Summarize("   ", 3))
}

func TestSummarizePicksFrequentTopicInOrder(t *testing.T) {
	text := "Encryption protects data. Encryption keys need rotation. " +
		"Lunch was tasty. Strong encryption uses long keys. The weather is mild."
	out := summarizer.NewFrequencySummarizer().Summarize(text, 2)

	sentences := textutil.Sentences(out)
	assert.Len(t, sentences, 2)
	for _, s := range sentences {
		assert.Contains(t, strings.ToLower(s), "encryption")
	}
	assert.Less(t, strings.Index(text, sentences[0]), strings.Index(text, sentences[1]))
}

func TestSummarizeDefaultsMaxSentences(t *testing.T) {
	text := "A one. B two. C three. D four. E five."
	out := summarizer.NewFrequencySummarizer().Summarize(text, 0)
	assert.Len(t, textutil.Sentences(out), summarizer.DefaultMaxSentences)
}
