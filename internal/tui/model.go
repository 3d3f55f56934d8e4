package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/chat"
	"ragchat/internal/completion"
	"ragchat/internal/domain"
)

// ChatPort is the TUI-facing subset of chat.Session.
type ChatPort interface {
	Draft(text string, role domain.Role) domain.Message
	Send(ctx context.Context, msg domain.Message, gen chat.GenerationConfig) (*completion.Response, error)
	Generation() chat.GenerationConfig
	Retrieved() []domain.RetrievalResult
}

type entry struct {
	role    domain.Role
	text    string
	sources []string
}

type replyMsg struct {
	resp    *completion.Response
	sources []string
	err     error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	session  ChatPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	entries  []entry
	summary  string
	status   string
	busy     bool
	ready    bool
}

// New creates a new TUI model instance. ctx bounds every completion call.
func New(ctx context.Context, session ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or type exit to leave"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		session:  session,
		input:    ti,
		viewport: vp,
		spinner:  sp,
		summary:  summary,
		status:   "Ready.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and reply events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		cw, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, input, spacer
		m.viewport.Width = max(20, msg.Width-cw)
		m.viewport.Height = max(3, msg.Height-reserved-ch)
		m.refresh()
		return m, nil
	case replyMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.entries = append(m.entries, entry{role: domain.RoleAssistant, text: msg.resp.Content, sources: msg.sources})
			m.status = fmt.Sprintf("%d tokens used", msg.resp.TotalTokens)
		}
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			if chat.IsExit(q) {
				return m, tea.Quit
			}
			if m.busy {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.status = "Thinking..."
			m.entries = append(m.entries, entry{role: domain.RoleUser, text: q})
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, sendTurn(m.ctx, m.session, q))
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the header, conversation, input box and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + summary + "\n" +
		chatBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

func (m Model) renderConversation() string {
	if len(m.entries) == 0 {
		return "No messages yet."
	}
	width := max(10, m.viewport.Width-16)
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.role == domain.RoleUser {
			b.WriteString(userStyle.Render("You: "))
		} else {
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(lipgloss.NewStyle().Width(width).Render(e.text))
		if len(e.sources) > 0 {
			b.WriteString("\n" + sourceStyle.Render("Sources: "+strings.Join(e.sources, ", ")))
		}
	}
	return b.String()
}

// sendTurn runs one turn off the UI goroutine and reports it as a replyMsg.
func sendTurn(ctx context.Context, session ChatPort, text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := session.Send(ctx, session.Draft(text, domain.RoleUser), session.Generation())
		if err != nil {
			return replyMsg{err: err}
		}
		return replyMsg{resp: resp, sources: chat.SourcePaths(session.Retrieved())}
	}
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)
