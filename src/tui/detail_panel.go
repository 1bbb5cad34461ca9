package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"logrero/src/contracts"
	"logrero/src/sanitize"
)

// detailField is one journal field shown below the message.
type detailField struct {
	name  string
	value string
}

func detailFields(r contracts.LogRecord) []detailField {
	all := []detailField{
		{contracts.FieldSystemdUnit, r.SystemdUnit},
		{contracts.FieldSyslogIdentifier, r.SyslogIdentifier},
		{contracts.FieldComm, r.Comm},
		{contracts.FieldExe, r.Exe},
		{contracts.FieldCmdline, r.Cmdline},
		{contracts.FieldPID, r.PID},
		{contracts.FieldUID, r.UID},
		{contracts.FieldGID, r.GID},
		{contracts.FieldTransport, r.Transport},
		{contracts.FieldSyslogFacility, r.SyslogFacility},
		{contracts.FieldSystemdSlice, r.SystemdSlice},
		{contracts.FieldSystemdCgroup, r.SystemdCgroup},
		{contracts.FieldBootID, r.BootID},
		{"__CURSOR", r.Cursor},
	}
	fields := all[:0]
	for _, f := range all {
		if f.value != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// renderDetail renders the selected record: a summary line, the full message
// and every non-empty journal field.
func (m MainModel) renderDetail(item Item, maxWidth int) string {
	content := strings.Builder{}

	header := lipgloss.NewStyle().
		Foreground(m.styles.PrimaryBlue).
		Bold(true).
		Render(fmt.Sprintf("%s | %s | %s", formatTime(item), item.Source(), item.Stored.ID))
	fmt.Fprintf(&content, "%s\n\n", header)

	msgStyle := m.styles.PriorityStyle(item.Priority())
	fmt.Fprintln(&content, msgStyle.Render(PriorityLabel(item.Priority())+":"))
	for _, line := range strings.Split(sanitize.Clean(item.Stored.Record.Message), "\n") {
		fmt.Fprintln(&content, msgStyle.Render(sanitize.Wrap(line, maxWidth)))
	}
	fmt.Fprintln(&content)

	labelStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(m.styles.TextSecondary)
	for _, f := range detailFields(item.Stored.Record) {
		label := labelStyle.Render(f.name + "=")
		width := maxWidth - sanitize.VisualWidth(f.name) - 1
		fmt.Fprintf(&content, "%s%s\n", label, valueStyle.Render(sanitize.Wrap(sanitize.OneLine(f.value), width)))
	}

	return content.String()
}

// updateDetailContent shows item in the detail panel, scrolled to the top.
func (m *MainModel) updateDetailContent(item Item) {
	m.detailViewport.SetContent(m.renderDetail(item, m.detailViewport.Width))
	m.detailViewport.GotoTop()
}
