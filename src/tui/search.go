package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"logrero/src/sanitize"
)

// applyFilter filters items by priority and search query and refreshes the table.
func (m *MainModel) applyFilter() {
	filter := m.header.GetFilter()
	query := strings.ToLower(strings.TrimSpace(m.searchQuery))

	filtered := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		if filter != filterAll && item.Priority() != filter {
			continue
		}
		if query != "" && !item.Matches(query) {
			continue
		}
		filtered = append(filtered, item)
	}
	m.filtered = filtered

	rows := make([]table.Row, len(filtered))
	for i, item := range filtered {
		rows[i] = table.Row{
			formatTime(item),
			PriorityLabel(item.Priority()),
			sanitize.Truncate(item.Source(), sourceWidth, true),
			item.Summary(),
		}
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) || m.table.Cursor() < 0 {
		m.table.SetCursor(0)
	}
	m.header.SetCounts(len(filtered), len(m.items))

	if item, ok := m.selected(); ok {
		m.updateDetailContent(item)
	} else {
		m.detailViewport.SetContent("")
	}
}

func formatTime(item Item) string {
	t := item.Time()
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
