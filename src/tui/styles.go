package tui

import "github.com/charmbracelet/lipgloss"

// StyleConfig holds all customizable style colors for the viewer.
type StyleConfig struct {
	PrimaryBlue    lipgloss.Color
	DarkBackground lipgloss.Color
	TextPrimary    lipgloss.Color
	TextSecondary  lipgloss.Color
	BorderColor    lipgloss.Color
	SelectedColor  lipgloss.Color

	// Indexed by syslog priority, 0 (emerg) to 7 (debug).
	PriorityColors [8]lipgloss.Color
}

// DefaultStyles returns the default color palette
func DefaultStyles() *StyleConfig {
	return &StyleConfig{
		PrimaryBlue:    lipgloss.Color("#8AB4F8"),
		DarkBackground: lipgloss.Color("#1E1E1E"),
		TextPrimary:    lipgloss.Color("#E8EAED"),
		TextSecondary:  lipgloss.Color("#9AA0A6"),
		BorderColor:    lipgloss.Color("#5F6368"),
		SelectedColor:  lipgloss.Color("#303134"),
		PriorityColors: [8]lipgloss.Color{
			lipgloss.Color("#FF1744"), // emerg
			lipgloss.Color("#FF1744"), // alert
			lipgloss.Color("#EA4335"), // crit
			lipgloss.Color("#EA4335"), // err
			lipgloss.Color("#FBBC04"), // warning
			lipgloss.Color("#24C1E0"), // notice
			lipgloss.Color("#E8EAED"), // info
			lipgloss.Color("#9AA0A6"), // debug
		},
	}
}

var priorityNames = [8]string{"emerg", "alert", "crit", "err", "warning", "notice", "info", "debug"}

// PriorityLabel renders a numeric priority as "3 err". Unknown values are returned as is.
func PriorityLabel(p string) string {
	if len(p) == 1 && p[0] >= '0' && p[0] <= '7' {
		return p + " " + priorityNames[p[0]-'0']
	}
	return p
}

// PriorityStyle returns the foreground style for a numeric priority.
func (s *StyleConfig) PriorityStyle(p string) lipgloss.Style {
	style := lipgloss.NewStyle().Foreground(s.TextPrimary)
	if len(p) == 1 && p[0] >= '0' && p[0] <= '7' {
		style = style.Foreground(s.PriorityColors[p[0]-'0'])
		if p[0] <= '3' {
			style = style.Bold(true)
		}
	}
	return style
}

// HelpStyle returns a help text lipgloss style using this config
func (s *StyleConfig) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(s.TextSecondary).
		Padding(0, 2)
}

// PanelStyle returns a bordered panel style using this config
func (s *StyleConfig) PanelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(s.BorderColor)
}
