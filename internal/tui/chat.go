// Package tui provides the interactive chat interface used by the `chat`
// command to drive the engine locally.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Handler is the message-processing function the chat drives; in production
// it is engine.HandleMessage.
type Handler func(ctx context.Context, ownerID, text string) (string, error)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the bubbletea model of the chat REPL.
type Model struct {
	ctx     context.Context
	handler Handler
	input   textinput.Model
	ownerID string
	lines   []string
	width   int
}

// replyMsg carries the engine's answer back into the update loop.
type replyMsg struct {
	text string
	err  error
}

// NewModel creates the chat model.
func NewModel(ctx context.Context, handler Handler, ownerID string) Model {
	input := textinput.New()
	input.Placeholder = "Ex: Botox 2800 3x"
	input.Focus()
	input.CharLimit = 280

	return Model{
		ctx:     ctx,
		handler: handler,
		input:   input,
		ownerID: ownerID,
		lines: []string{
			assistantStyle.Render("Oi! Me conta suas vendas e gastos. (esc para sair)"),
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc, tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.lines = append(m.lines, userStyle.Render("você: ")+text)
			m.input.Reset()
			return m, m.send(text)
		}

	case replyMsg:
		if msg.err != nil {
			m.lines = append(m.lines, errorStyle.Render("erro: "+msg.err.Error()))
		} else {
			for _, line := range strings.Split(msg.text, "\n") {
				m.lines = append(m.lines, assistantStyle.Render("caixinha: ")+line)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter envia · esc sai"))

	return b.String()
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.handler(m.ctx, m.ownerID, text)
		return replyMsg{text: reply, err: err}
	}
}
