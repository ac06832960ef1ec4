// Package tui provides the terminal UI for following a triggered build:
// a status header over a scrolling console viewport.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"slipway/src/jenkins"
	"slipway/src/watcher"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(0, 1)

	stateColors = map[jenkins.BuildState]lipgloss.Color{
		jenkins.StateQueued:    lipgloss.Color("11"),  // yellow
		jenkins.StateRunning:   lipgloss.Color("12"),  // blue
		jenkins.StateSuccess:   lipgloss.Color("10"),  // green
		jenkins.StateUnstable:  lipgloss.Color("11"),  // yellow
		jenkins.StateFailed:    lipgloss.Color("196"), // red
		jenkins.StateAborted:   lipgloss.Color("244"), // gray
		jenkins.StateCancelled: lipgloss.Color("244"), // gray
	}
)

// SnapshotMsg carries one watcher observation into the model.
type SnapshotMsg watcher.Snapshot

// WatchDoneMsg signals that the watch loop finished.
type WatchDoneMsg struct {
	State jenkins.BuildState
	Err   error
}

// WatchModel is the Bubble Tea model for following one build.
type WatchModel struct {
	job         string
	state       jenkins.BuildState
	number      int64
	displayName string

	console  strings.Builder
	spinner  spinner.Model
	viewport viewport.Model
	ready    bool

	done bool
	err  error

	width  int
	height int
}

// NewWatchModel creates a model for the given job, starting in the queued
// state.
func NewWatchModel(job string) WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return WatchModel{
		job:     job,
		state:   jenkins.StateQueued,
		spinner: sp,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		bodyHeight := msg.Height - 2 // header + footer
		if bodyHeight < 1 {
			bodyHeight = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, bodyHeight)
			m.ready = true
			m.refreshViewport()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = bodyHeight
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case SnapshotMsg:
		m.state = msg.State
		m.number = msg.Number
		m.displayName = msg.DisplayName
		if msg.Chunk != "" {
			m.console.WriteString(msg.Chunk)
			m.refreshViewport()
		}
		return m, nil

	case WatchDoneMsg:
		m.done = true
		m.state = msg.State
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refreshViewport re-renders the console tail and pins the view to the
// bottom, mirroring a terminal following a log.
func (m *WatchModel) refreshViewport() {
	if !m.ready {
		return
	}
	lines := strings.Split(m.console.String(), "\n")
	for i, line := range lines {
		lines[i] = CleanLine(line)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

func (m WatchModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.footerView()
}

func (m WatchModel) headerView() string {
	name := m.job
	if m.displayName != "" {
		name = fmt.Sprintf("%s %s", m.job, m.displayName)
	} else if m.number > 0 {
		name = fmt.Sprintf("%s #%d", m.job, m.number)
	}

	stateStyle := lipgloss.NewStyle().Bold(true)
	if color, ok := stateColors[m.state]; ok {
		stateStyle = stateStyle.Foreground(color)
	}
	status := stateStyle.Render(string(m.state))
	if !m.done && !m.state.Terminal() {
		status = m.spinner.View() + status
	}

	width := m.width - VisualWidth(status) - 4
	return headerStyle.Render(Pad(name, max(width, 10))) + " " + status
}

func (m WatchModel) footerView() string {
	switch {
	case m.err != nil:
		return footerStyle.Render(Clip(fmt.Sprintf("watch failed: %v — q to quit", m.err), max(m.width, 20)))
	case m.done:
		return footerStyle.Render("build finished — q to quit")
	default:
		return footerStyle.Render("q to quit and cancel the build • arrows/pgup/pgdn to scroll")
	}
}

// RunWatch starts the program and feeds it from run, which receives a send
// function safe to call from other goroutines.
func RunWatch(m WatchModel, run func(send func(tea.Msg))) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go run(p.Send)
	_, err := p.Run()
	return err
}
