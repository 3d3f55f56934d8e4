// Package completion defines the boundary to a hosted chat-completion service.
package completion

import (
	"context"
	"errors"
	"io"
	"strings"

	"ragchat/internal/domain"
)

// Request is one chat-completion call.
type Request struct {
	Model       string
	Messages    []domain.Message
	Temperature float64
	MaxTokens   int
	Stop        []string
}

// Response is a parsed non-streaming completion.
type Response struct {
	Content          string      `json:"content"`
	FinishReason     string      `json:"finish_reason"`
	Role             domain.Role `json:"role"`
	PromptTokens     int         `json:"prompt_tokens"`
	CompletionTokens int         `json:"completion_tokens"`
	TotalTokens      int         `json:"total_tokens"`
}

// Delta is one increment of a streamed completion.
type Delta struct {
	Content      string
	FinishReason string
}

// Stream yields completion deltas. Recv returns io.EOF after the last delta.
// Callers must Close the stream.
type Stream interface {
	Recv() (Delta, error)
	Close() error
}

// Completer calls a completion service.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (Stream, error)
}

// Collect drains s, calling onDelta for every non-empty delta, and returns
// the assembled content. s is closed on return.
func Collect(s Stream, onDelta func(Delta) error) (string, error) {
	defer s.Close()
	var sb strings.Builder
	for {
		d, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		if d.Content == "" && d.FinishReason == "" {
			continue
		}
		sb.WriteString(d.Content)
		if onDelta != nil {
			if err := onDelta(d); err != nil {
				return sb.String(), err
			}
		}
	}
}
