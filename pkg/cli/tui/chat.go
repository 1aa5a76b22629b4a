package tui

import (
	"strings"

	"housing-data-go/pkg/cli/client"
	"housing-data-go/pkg/cli/logger"
	"housing-data-go/pkg/models"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// chatModel is a conversation flow: a scrolling transcript over a text
// input. The session id from the first response is reused on every turn.
type chatModel struct {
	client *client.Client

	input      textinput.Model
	transcript viewport.Model
	lines      []string

	sessionID string
	waiting   bool
	err       error
	ready     bool
}

type chatReplyMsg struct {
	resp *models.ChatResponse
	err  error
}

func NewChatModel(apiClient *client.Client) tea.Model {
	input := textinput.New()
	input.Placeholder = "Ask about the housing data, or anything else..."
	input.CharLimit = 500
	input.Focus()

	return &chatModel{
		client: apiClient,
		input:  input,
	}
}

func (m *chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.transcript = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.transcript.Width = msg.Width
			m.transcript.Height = msg.Height - 6
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, backToMenu
		case "enter":
			message := strings.TrimSpace(m.input.Value())
			if message == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.waiting = true
			m.err = nil
			m.lines = append(m.lines, boldStyle.Render("You: ")+message, "")
			m.refresh()
			return m, func() tea.Msg {
				resp, err := m.client.Chat(message, m.sessionID)
				return chatReplyMsg{resp: resp, err: err}
			}
		}

	case chatReplyMsg:
		m.waiting = false
		if msg.err != nil {
			logger.LogError(msg.err, "chat request failed")
			m.err = msg.err
			return m, nil
		}
		m.sessionID = msg.resp.SessionID
		m.lines = append(m.lines, botStyle.Render("Bot: "+msg.resp.Response))
		for _, src := range msg.resp.Sources {
			m.lines = append(m.lines, sourceStyle.Render("  · "+src.Title+" — "+src.URI))
		}
		m.lines = append(m.lines, "")
		m.refresh()
		return m, nil
	}

	var inputCmd, vpCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.transcript, vpCmd = m.transcript.Update(msg)
	return m, tea.Batch(inputCmd, vpCmd)
}

func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	m.transcript.SetContent(strings.Join(m.lines, "\n"))
	m.transcript.GotoBottom()
}

func (m *chatModel) View() string {
	var b strings.Builder

	b.WriteString(renderTitle("Chat"))
	if m.ready {
		b.WriteString(m.transcript.View())
		b.WriteString("\n")
	}
	if m.waiting {
		b.WriteString(infoStyle.Render("Thinking...") + "\n")
	}
	if m.err != nil {
		b.WriteString(renderError(m.err.Error()) + "\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n" + helpStyle.Render("Enter: send  Esc: back  Ctrl+C: quit"))
	return b.String()
}
