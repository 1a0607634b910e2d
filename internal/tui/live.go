// Package tui renders live experiment progress in the terminal. It
// only polls the driver's shared status counters; the engine never
// depends on it.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/replisim/internal/task"
)

const barWidth = 40

var (
	title    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	barFill  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	barEmpty = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	failed   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

type tickMsg time.Time

// DoneMsg signals that the driver goroutine finished.
type DoneMsg struct {
	Err error
}

type Model struct {
	status *task.Status
	start  time.Time
	done   bool
	err    error
}

func New(status *task.Status) Model {
	return Model{status: status, start: time.Now()}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		if m.done {
			return m, tea.Quit
		}
		return m, tick()
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	epoch := int(m.status.Epoch.Load())
	step := m.status.Progress.Current()
	total := m.status.Steps

	var b strings.Builder
	b.WriteString(title.Render("replisim"))
	b.WriteString(dim.Render(fmt.Sprintf("  epoch %d/%d", epoch, m.status.Epochs)))
	b.WriteString("\n\n")
	b.WriteString(renderBar(step, total))
	b.WriteString(fmt.Sprintf(" %d/%d", step, total))
	b.WriteString(dim.Render(fmt.Sprintf("  %s", time.Since(m.start).Round(time.Second))))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(failed.Render(fmt.Sprintf("failed: %v", m.err)))
	} else {
		b.WriteString(dim.Render("q to quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func renderBar(step, total int) string {
	if total <= 0 {
		total = 1
	}
	filled := step * barWidth / total
	if filled > barWidth {
		filled = barWidth
	}
	return "[" +
		barFill.Render(strings.Repeat("=", filled)) +
		barEmpty.Render(strings.Repeat("-", barWidth-filled)) +
		"]"
}

// Run displays live progress while fn executes in the background and
// returns fn's error once it completes.
func Run(status *task.Status, fn func() error) error {
	p := tea.NewProgram(New(status))

	go func() {
		p.Send(DoneMsg{Err: fn()})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.err
	}
	return nil
}
