package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Spinner frames for the loading indicator
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// SpinnerTickMsg triggers spinner animation frame advance
type SpinnerTickMsg time.Time

// ProgressModel shows a spinner while records are fetched.
type ProgressModel struct {
	label        string
	done         bool
	spinnerFrame int
}

// NewProgressModel creates a spinner with the given label.
func NewProgressModel(label string) ProgressModel {
	return ProgressModel{label: label}
}

// SpinnerTick returns a command that sends SpinnerTickMsg after a delay
func SpinnerTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(t time.Time) tea.Msg {
		return SpinnerTickMsg(t)
	})
}

// Start resets the spinner for another fetch.
func (m ProgressModel) Start() (ProgressModel, tea.Cmd) {
	wasDone := m.done
	m.done = false
	if wasDone {
		return m, SpinnerTick()
	}
	return m, nil
}

// Stop ends the animation after the current frame.
func (m ProgressModel) Stop() ProgressModel {
	m.done = true
	return m
}

// Loading reports whether the spinner is running.
func (m ProgressModel) Loading() bool {
	return !m.done
}

func (m ProgressModel) Update(msg tea.Msg) (ProgressModel, tea.Cmd) {
	if _, ok := msg.(SpinnerTickMsg); ok && !m.done {
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, SpinnerTick()
	}
	return m, nil
}

func (m ProgressModel) View() string {
	spinner := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Render(spinnerFrames[m.spinnerFrame])
	return fmt.Sprintf("%s %s...", spinner, m.label)
}
