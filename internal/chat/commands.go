package chat

import (
	"strings"

	"ragchat/internal/domain"
)

var exitKeywords = map[string]struct{}{"exit": {}, "leave": {}, "stop": {}}

// IsExit reports whether the user input ends the conversation.
func IsExit(input string) bool {
	_, ok := exitKeywords[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// SourcePaths lists the distinct sources of results, in retrieval order.
func SourcePaths(results []domain.RetrievalResult) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, r := range results {
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}
