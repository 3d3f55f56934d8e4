package summarizer

import (
	"math"
	"sort"
	"strings"

	"ragchat/internal/textutil"
)

// DefaultMaxSentences bounds the corpus summary shown when a chat starts.
const DefaultMaxSentences = 3

// FrequencySummarizer ranks sentences by the normalized frequency of their
// content words and keeps the best ones in document order.
type FrequencySummarizer struct{}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer { return &FrequencySummarizer{} }

// Summarize returns at most maxSentences sentences of text.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) string {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := textutil.Sentences(text)
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " ")
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = textutil.Tokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}

	type pair struct {
		idx   int
		score float64
	}
	scores := make([]pair, len(sentences))
	for i := range sentences {
		score := 0.0
		for _, tok := range tokens[i] {
			score += freq[tok] / maxF
		}
		// long sentences would otherwise always win
		if l := float64(len(tokens[i])); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = pair{i, score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " ")
}
