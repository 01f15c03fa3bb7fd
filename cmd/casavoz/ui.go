package main

import (
	"fmt"
	"strings"

	coordination "github.com/casavoz/casavoz-core/core"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type transcriptMessageMsg struct{ message coordination.Message }
type interimTranscriptMsg struct{ transcript string }
type modeChangedMsg struct{ mode coordination.Mode }
type liveModeChangedMsg struct{ enabled bool }
type speakingStateMsg struct{ speaking bool }
type sessionErrorMsg struct{ err error }

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	interimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7")).Padding(0, 1)
	liveStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("9")).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type model struct {
	coordinator *coordination.Coordinator

	input    textinput.Model
	messages []coordination.Message
	interim  string
	mode     coordination.Mode
	live     bool
	speaking bool
	lastErr  error

	width  int
	height int
}

func newModel(coordinator *coordination.Coordinator) model {
	input := textinput.New()
	input.Placeholder = "Ask about a property..."
	input.Focus()

	return model{
		coordinator: coordinator,
		input:       input,
		mode:        coordination.ModeIdle,
		width:       80,
		height:      24,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+l":
			return m, m.toggleLive()
		case "ctrl+r":
			return m, m.toggleListening()
		case "enter":
			text := m.input.Value()
			m.input.Reset()
			return m, m.send(text)
		}

	case transcriptMessageMsg:
		m.messages = append(m.messages, msg.message)
		if msg.message.Role == coordination.RoleUser {
			m.interim = ""
		}
		return m, nil

	case interimTranscriptMsg:
		m.interim = msg.transcript
		return m, nil

	case modeChangedMsg:
		m.mode = msg.mode
		return m, nil

	case liveModeChangedMsg:
		m.live = msg.enabled
		if !msg.enabled {
			m.interim = ""
		}
		return m, nil

	case speakingStateMsg:
		m.speaking = msg.speaking
		return m, nil

	case sessionErrorMsg:
		m.lastErr = msg.err
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) toggleLive() tea.Cmd {
	coordinator := m.coordinator
	live := m.live
	return func() tea.Msg {
		var err error
		if live {
			err = coordinator.DisableLive()
		} else {
			err = coordinator.EnableLive()
		}
		if err != nil {
			return sessionErrorMsg{err: err}
		}
		return nil
	}
}

func (m model) toggleListening() tea.Cmd {
	coordinator := m.coordinator
	listening := m.mode == coordination.ModeListening && !m.live
	return func() tea.Msg {
		var err error
		if listening {
			err = coordinator.StopListening()
		} else {
			err = coordinator.StartListening()
		}
		if err != nil {
			return sessionErrorMsg{err: err}
		}
		return nil
	}
}

// send submits the typed input. With an empty input while listening, the
// captured spoken utterance is submitted instead.
func (m model) send(text string) tea.Cmd {
	coordinator := m.coordinator
	return func() tea.Msg {
		if err := coordinator.Send(text); err != nil {
			return sessionErrorMsg{err: err}
		}
		return nil
	}
}

func (m model) View() string {
	var view strings.Builder

	view.WriteString(m.statusBar())
	view.WriteString("\n\n")

	for _, message := range m.messages {
		view.WriteString(m.renderMessage(message))
		view.WriteString("\n")
	}

	if m.interim != "" {
		view.WriteString(interimStyle.Render(wordwrap.String("… "+m.interim, m.contentWidth())))
		view.WriteString("\n")
	}

	if m.lastErr != nil {
		view.WriteString(errorStyle.Render(wordwrap.String("error: "+m.lastErr.Error(), m.contentWidth())))
		view.WriteString("\n")
	}

	view.WriteString("\n")
	view.WriteString(m.input.View())
	view.WriteString("\n")
	view.WriteString(helpStyle.Render("enter send · ctrl+l toggle live · ctrl+r toggle mic · esc quit"))

	return view.String()
}

func (m model) statusBar() string {
	mode := statusStyle.Render(strings.ToUpper(m.mode.String()))

	var badges []string
	badges = append(badges, mode)
	if m.live {
		badges = append(badges, liveStyle.Render("LIVE"))
	}
	if m.speaking {
		badges = append(badges, statusStyle.Render("VOICE DETECTED"))
	}

	return strings.Join(badges, " ")
}

func (m model) renderMessage(message coordination.Message) string {
	label := assistantStyle.Render("agent")
	if message.Role == coordination.RoleUser {
		label = userStyle.Render("you")
	}

	return fmt.Sprintf("%s %s", label, wordwrap.String(message.Text, m.contentWidth()))
}

func (m model) contentWidth() int {
	if m.width <= 10 {
		return 70
	}
	return m.width - 8
}
