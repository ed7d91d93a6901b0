package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/kagura-engine/kagura/internal/handlers"
	"github.com/kagura-engine/kagura/internal/services"
	"github.com/kagura-engine/kagura/pkg/session"
)

const saveSlot = 0

// ConsoleUI is the BubbleTea model that runs the player.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api       *apiClient
	info      *services.GameInfo
	sessionID string

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	state    session.State
	lines    []string
	switches []string
	err      error
	status   string
	loading  bool
}

type stepMsg struct {
	step *handlers.StepResponse
	err  error
}

type savedMsg struct {
	slot int
	err  error
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	switchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	disabledStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(api *apiClient, info *services.GameInfo, sessionID string) ConsoleUI {
	vp := viewport.New(70, 20)
	vp.MouseWheelEnabled = true

	return ConsoleUI{
		api:       api,
		info:      info,
		sessionID: sessionID,
		viewport:  vp,
		state:     session.StateRunning,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.stepCmd(func() (*handlers.StepResponse, error) {
		return m.api.next(m.sessionID)
	})
}

func (m ConsoleUI) stepCmd(op func() (*handlers.StepResponse, error)) tea.Cmd {
	return func() tea.Msg {
		step, err := op()
		return stepMsg{step: step, err: err}
	}
}

func (m ConsoleUI) saveCmd() tea.Cmd {
	return func() tea.Msg {
		slot, err := m.api.saveRecord(m.sessionID, saveSlot)
		return savedMsg{slot: slot, err: err}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		m.ready = true
		m.refreshContent()
		return m, nil

	case stepMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.refreshContent()
			return m, nil
		}
		m.err = nil
		m.applyStep(msg.step)
		m.refreshContent()
		return m, nil

	case savedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = fmt.Sprintf("Saved to slot %d", msg.slot)
		}
		m.refreshContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "enter", " ":
		if m.state == session.StateAwaitingSwitch {
			return m, nil // a choice is pending
		}
		m.loading = true
		m.status = ""
		return m, m.stepCmd(func() (*handlers.StepResponse, error) {
			return m.api.next(m.sessionID)
		})

	case "b":
		m.loading = true
		m.status = ""
		return m, m.stepCmd(func() (*handlers.StepResponse, error) {
			return m.api.back(m.sessionID)
		})

	case "s":
		m.loading = true
		m.status = ""
		return m, m.saveCmd()

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if m.state != session.StateAwaitingSwitch {
			return m, nil
		}
		index := int(msg.String()[0] - '1')
		m.loading = true
		m.status = ""
		return m, m.stepCmd(func() (*handlers.StepResponse, error) {
			return m.api.choose(m.sessionID, index)
		})
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// applyStep folds a step response into the transcript.
func (m *ConsoleUI) applyStep(step *handlers.StepResponse) {
	m.state = step.State
	m.switches = nil

	if step.Action == nil {
		return
	}

	if step.State == session.StateAwaitingSwitch {
		for i, sw := range step.Action.Switches {
			label := fmt.Sprintf("%d - %s", i+1, sw.Text)
			if !sw.Enabled {
				label += " (unavailable)"
			}
			m.switches = append(m.switches, label)
		}
	}

	if step.Moved || step.State == session.StateAwaitingSwitch {
		line := step.Action.Text
		if step.Action.Speaker != "" {
			line = speakerStyle.Render(step.Action.Speaker+": ") + line
		}
		if step.Moved {
			m.lines = append(m.lines, line)
		} else {
			// The blocking action's text shows with its choices, not in the
			// transcript; it joins the transcript once a switch resolves it.
			m.switches = append([]string{line, ""}, m.switches...)
		}
	}
}

func (m *ConsoleUI) refreshContent() {
	if !m.ready {
		return
	}

	width := m.viewport.Width - 4
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(m.info.Title) + "\n\n")

	for _, line := range m.lines {
		content.WriteString(wordwrap.String(textStyle.Render(line), width) + "\n\n")
	}

	if m.state == session.StateAwaitingSwitch {
		for _, label := range m.switches {
			style := switchStyle
			if strings.HasSuffix(label, "(unavailable)") {
				style = disabledStyle
			}
			content.WriteString(wordwrap.String(style.Render(label), width) + "\n")
		}
		content.WriteString("\n")
	}

	if m.state == session.StateEnded {
		content.WriteString(titleStyle.Render("THE END") + "\n")
	}

	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.status != "" {
		content.WriteString(statusStyle.Render(m.status) + "\n")
	}

	m.viewport.SetContent(content.String())
	m.viewport.GotoBottom()
}

func (m ConsoleUI) View() string {
	if !m.ready {
		return "Loading..."
	}

	help := "enter: next • b: back • s: save • q: quit"
	if m.state == session.StateAwaitingSwitch {
		help = "1-9: choose • b: back • s: save • q: quit"
	}
	if m.loading {
		help = "..."
	}

	return m.viewport.View() + "\n" + helpStyle.Render(help)
}
