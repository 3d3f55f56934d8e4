package openai_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/completion"
	"ragchat/internal/completion/openai"
	"ragchat/internal/domain"
)

const keyEnv = "RAGCHAT_TEST_LLM_KEY"

func newClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	t.Setenv(keyEnv, "gsk-test")
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := openai.NewClient(openai.Config{BaseURL: srv.URL, APIKeyEnv: keyEnv})
	require.NoError(t, err)
	return c
}

func TestComplete(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3-70b-8192", body["model"])
		assert.Equal(t, false, body["stream"])
		assert.Equal(t, 0.0, body["temperature"])
		assert.Equal(t, 1000.0, body["max_tokens"])
		assert.Equal(t, []any{"\n\n"}, body["stop"])
		assert.Len(t, body["messages"], 2)

		_, _ = io.WriteString(w, `{
			"choices":[{"message":{"role":"assistant","content":"AES is symmetric."},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":5,"total_tokens":17}
		}`)
	})

	resp, err := c.Complete(context.Background(), completion.Request{
		Model: "llama3-70b-8192",
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: "be brief"},
			{Role: domain.RoleUser, Content: "What is AES?"},
		},
		MaxTokens: 1000,
		Stop:      []string{"\n\n"},
	})
	require.NoError(t, err)
	assert.Equal(t, &completion.Response{
		Content:          "AES is symmetric.",
		FinishReason:     "stop",
		Role:             domain.RoleAssistant,
		PromptTokens:     12,
		CompletionTokens: 5,
		TotalTokens:      17,
	}, resp)
}

func TestCompleteStatusError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})
	_, err := c.Complete(context.Background(), completion.Request{Model: "m"})
	assert.ErrorContains(t, err, "429")
}

func TestCompleteEmptyChoices(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	})
	_, err := c.Complete(context.Background(), completion.Request{Model: "m"})
	assert.Error(t, err)
}

func TestStream(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"AES ", "is ", "symmetric."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", part)
		}
		_, _ = io.WriteString(w, ": keep-alive\n\n")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	})

	s, err := c.Stream(context.Background(), completion.Request{Model: "m"})
	require.NoError(t, err)

	var finish string
	out, err := completion.Collect(s, func(d completion.Delta) error {
		if d.FinishReason != "" {
			finish = d.FinishReason
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "AES is symmetric.", out)
	assert.Equal(t, "stop", finish)
}

func TestStreamStatusError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	_, err := c.Stream(context.Background(), completion.Request{Model: "m"})
	assert.ErrorContains(t, err, "401")
}
