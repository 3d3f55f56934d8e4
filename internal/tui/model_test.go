package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/chat"
	"ragchat/internal/completion"
	"ragchat/internal/domain"
)

type fakeSession struct {
	retrieved []domain.RetrievalResult
	reply     string
	err       error
}

func (f *fakeSession) Draft(text string, role domain.Role) domain.Message {
	return domain.Message{Role: role, Content: text}
}

func (f *fakeSession) Send(context.Context, domain.Message, chat.GenerationConfig) (*completion.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.retrieved = []domain.RetrievalResult{
		{Source: "notes.txt", Content: "AES is symmetric.\n[Source: quoted.txt]"},
		{Source: "notes.txt", Content: "Keys are 128 bits or more."},
	}
	return &completion.Response{Content: f.reply, TotalTokens: 42}, nil
}

func (f *fakeSession) Generation() chat.GenerationConfig { return chat.GenerationConfig{} }

func (f *fakeSession) Retrieved() []domain.RetrievalResult { return f.retrieved }

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestExitKeywordsQuit(t *testing.T) {
	for _, word := range []string{"exit", "leave", "STOP"} {
		m := sized(t, New(context.Background(), &fakeSession{}, ""))
		m.input.SetValue(word)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		assert.True(t, isQuit(cmd), word)
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := sized(t, New(context.Background(), &fakeSession{}, ""))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(cmd))
}

func TestEnterSendsTurnAndShowsReply(t *testing.T) {
	fs := &fakeSession{reply: "AES is a block cipher."}
	m := sized(t, New(context.Background(), fs, "summary"))
	m.input.SetValue("what is aes?")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.entries, 1)

	reply := sendTurn(context.Background(), fs, "what is aes?")()
	next, _ = m.Update(reply)
	m = next.(Model)

	assert.False(t, m.busy)
	require.Len(t, m.entries, 2)
	assert.Equal(t, "AES is a block cipher.", m.entries[1].text)
	assert.Equal(t, []string{"notes.txt"}, m.entries[1].sources)
	assert.Contains(t, m.View(), "Sources: notes.txt")
	assert.NotContains(t, m.View(), "quoted.txt")
}

func TestFailedTurnShowsError(t *testing.T) {
	fs := &fakeSession{err: errors.New("rate limited")}
	m := sized(t, New(context.Background(), fs, ""))

	next, _ := m.Update(sendTurn(context.Background(), fs, "hi")())
	m = next.(Model)

	assert.Contains(t, m.status, "rate limited")
	assert.Empty(t, m.entries)
}
