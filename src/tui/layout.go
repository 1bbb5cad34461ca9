package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

const (
	timeLayout      = "2006-01-02 15:04:05"
	timeWidth       = len(timeLayout)
	priorityWidth   = len("4 warning")
	sourceWidth     = 24
	minMessageWidth = 20
	// The default table styles pad every cell by one on each side.
	cellPadding = 2
)

// columns returns the table columns for a table width, giving the message the rest.
func columns(width int) []table.Column {
	fixed := timeWidth + priorityWidth + sourceWidth + 4*cellPadding
	message := width - fixed
	if message < minMessageWidth {
		message = minMessageWidth
	}
	return []table.Column{
		{Title: "Time", Width: timeWidth},
		{Title: "Priority", Width: priorityWidth},
		{Title: "Source", Width: sourceWidth},
		{Title: "Message", Width: message},
	}
}

// panelDimensions holds calculated layout dimensions
type panelDimensions struct {
	innerWidth   int
	tableHeight  int
	detailHeight int
}

// calculateDimensions splits the screen between the record table and the detail panel.
func (m MainModel) calculateDimensions() panelDimensions {
	headerHeight := lipgloss.Height(m.header.Render(m.width))
	// header + help line (1) + two bordered panels (4)
	available := m.height - headerHeight - 1 - 4
	if available < 4 {
		available = 4
	}

	tableHeight := available * 2 / 5
	return panelDimensions{
		innerWidth:   max(m.width-2, 0),
		tableHeight:  tableHeight,
		detailHeight: available - tableHeight,
	}
}

// View renders the complete TUI layout
func (m MainModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	header := m.header.Render(m.width)
	body := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Center).PaddingTop(2)

	switch {
	case m.err != nil:
		msg := lipgloss.NewStyle().Foreground(m.styles.PriorityColors[3]).Render(fmt.Sprintf("Failed to load records: %v", m.err))
		return lipgloss.JoinVertical(lipgloss.Left, header, body.Render(msg), m.renderHelpText())
	case m.progress.Loading() && len(m.items) == 0:
		return lipgloss.JoinVertical(lipgloss.Left, header, body.Render(m.progress.View()))
	case len(m.items) == 0:
		return lipgloss.JoinVertical(lipgloss.Left, header, body.Render("No records forwarded yet."), m.renderHelpText())
	}

	dims := m.calculateDimensions()
	panel := m.styles.PanelStyle().Width(dims.innerWidth)

	detailPanel := panel
	if m.detailFocused {
		detailPanel = detailPanel.BorderForeground(m.styles.PrimaryBlue)
	}

	tableView := panel.Render(m.table.View())
	detailView := detailPanel.Render(m.detailViewport.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, tableView, detailView, m.renderHelpText())
}

// renderHelpText renders context-aware help text at the bottom
func (m MainModel) renderHelpText() string {
	keyStyle := lipgloss.NewStyle().Foreground(m.styles.PrimaryBlue).Bold(true)
	sepStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)

	var helpText string
	switch {
	case m.searchMode:
		helpText = fmt.Sprintf("%s: Apply %s %s: Clear",
			keyStyle.Render("Enter"), sepStyle.Render("•"),
			keyStyle.Render("Esc"))
	case m.detailFocused:
		helpText = fmt.Sprintf("%s: Scroll %s %s: Back %s %s: Quit",
			keyStyle.Render("j/k"), sepStyle.Render("•"),
			keyStyle.Render("Esc"), sepStyle.Render("•"),
			keyStyle.Render("q"))
	default:
		helpText = fmt.Sprintf("%s: Nav %s %s: View %s %s: Priority %s %s: Search %s %s: Refresh %s %s: Quit",
			keyStyle.Render("j/k"), sepStyle.Render("•"),
			keyStyle.Render("Enter"), sepStyle.Render("•"),
			keyStyle.Render("Tab"), sepStyle.Render("•"),
			keyStyle.Render("/"), sepStyle.Render("•"),
			keyStyle.Render("r"), sepStyle.Render("•"),
			keyStyle.Render("q"))
	}

	return m.styles.HelpStyle().Render(helpText)
}

// resizeComponents handles window resize events
func (m *MainModel) resizeComponents() {
	dims := m.calculateDimensions()

	m.table.SetColumns(columns(dims.innerWidth))
	m.table.SetWidth(dims.innerWidth)
	m.table.SetHeight(dims.tableHeight)

	m.detailViewport.Width = dims.innerWidth
	m.detailViewport.Height = dims.detailHeight

	if item, ok := m.selected(); ok {
		m.updateDetailContent(item)
	}
}
