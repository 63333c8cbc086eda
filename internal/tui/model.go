package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vectorchat/internal/chunker"
	"vectorchat/internal/conversation"
	"vectorchat/internal/textutil"
)

const (
	EmojiSearch  = "🔍"
	EmojiContext = "📚"
	EmojiAI      = "🤖"
	EmojiError   = "⚠️"
)

// ChatPort is the TUI-facing subset of the conversation controller.
type ChatPort interface {
	Turn(ctx context.Context, query string) (conversation.Reply, error)
	Reset(mode conversation.ResetMode)
	RetrievalEnabled() bool
}

type replyMsg struct {
	query string
	reply conversation.Reply
	err   error
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	chat       ChatPort
	ctx        context.Context
	input      textinput.Model
	viewport   viewport.Model
	transcript []string
	status     string
	busy       bool
	ready      bool
}

// New creates a chat model. Turns run with ctx.
func New(ctx context.Context, chat ChatPort) Model {
	ti := textinput.New()
	ti.Prompt = "You: "
	ti.Placeholder = "Ask a question, 'reset' to clear history, 'exit' to quit"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{chat: chat, ctx: ctx, input: ti, viewport: vp, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and reply events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around transcript and input boxes
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + legend, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case replyMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.append(errorStyle.Render(EmojiError + " Error getting response"))
			m.status = "Error: " + msg.err.Error()
		case msg.reply.UsedContext:
			m.append(EmojiContext + " " + contextReplyStyle.Render(highlightBestSentence(msg.reply.Content, msg.query)))
			m.status = "Answered from saved context."
		default:
			m.append(EmojiAI + " " + aiReplyStyle.Render(msg.reply.Content))
			m.status = "Answered from model knowledge."
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			return m.submit()
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	q := strings.TrimSpace(m.input.Value())
	if q == "" {
		return m, nil
	}
	m.input.SetValue("")

	switch conversation.ParseCommand(q) {
	case conversation.CommandExit:
		m.append("Goodbye!")
		return m, tea.Quit
	case conversation.CommandReset:
		m.chat.Reset(conversation.ResetSoft)
		m.append(EmojiAI + " Conversation history has been reset.")
		m.status = "History reset."
		return m, nil
	}

	m.append(userStyle.Render("You: ") + q)
	m.busy = true
	if m.chat.RetrievalEnabled() {
		m.status = EmojiSearch + " Searching for relevant information..."
	} else {
		m.status = "Waiting for response..."
	}
	chat, ctx := m.chat, m.ctx
	return m, func() tea.Msg {
		reply, err := chat.Turn(ctx, q)
		return replyMsg{query: q, reply: reply, err: err}
	}
}

func (m *Model) append(entry string) {
	m.transcript = append(m.transcript, entry)
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Chat with OpenAI")
	legend := legendStyle.Render(m.legend())
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + legend + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) legend() string {
	if m.chat.RetrievalEnabled() {
		return EmojiContext + " = Using saved context | " + EmojiAI + " = AI knowledge | " + EmojiSearch + " = Searching"
	}
	return EmojiAI + " = AI knowledge (no context retrieval enabled)"
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No messages yet."
	}
	return strings.Join(m.transcript, "\n\n")
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	legendStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Bold(true)
	contextReplyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	aiReplyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightBestSentence marks the reply sentence sharing the most words with the query.
func highlightBestSentence(text, query string) string {
	if strings.Contains(text, "\n") {
		return text
	}
	sentences := chunker.SplitSentences(text)
	if len(sentences) < 2 {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	bestIdx := 0
	bestScore := 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return text
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := textutil.ContentTokens(s)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := map[string]struct{}{}
	for _, t := range textutil.ContentTokens(sentence) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
