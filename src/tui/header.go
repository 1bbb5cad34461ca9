package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// filterAll is the priority filter that shows every record.
const filterAll = "ALL"

// Header represents the top status bar component.
type Header struct {
	device         string
	policy         []string
	selectedFilter string
	available      []string
	shown, total   int
	searchQuery    string
	searchMode     bool
	styles         *StyleConfig
}

// NewHeader creates a new header with default styles
func NewHeader(device string, policy []string) Header {
	return NewHeaderWithStyles(device, policy, DefaultStyles())
}

// NewHeaderWithStyles creates a new header with custom styles
func NewHeaderWithStyles(device string, policy []string, styles *StyleConfig) Header {
	return Header{
		device:         device,
		policy:         policy,
		selectedFilter: filterAll,
		styles:         styles,
	}
}

// SetPriorities sets the priorities the filter cycles through. The current
// filter falls back to ALL when its priority is gone.
func (h *Header) SetPriorities(priorities []string) {
	sorted := append([]string(nil), priorities...)
	sort.Strings(sorted)
	h.available = sorted

	for _, p := range sorted {
		if p == h.selectedFilter {
			return
		}
	}
	h.selectedFilter = filterAll
}

// SetFilter sets the current filter
func (h *Header) SetFilter(filter string) {
	h.selectedFilter = filter
}

// GetFilter returns the current filter
func (h Header) GetFilter() string {
	return h.selectedFilter
}

// CycleFilter cycles to the next filter
func (h *Header) CycleFilter() {
	filters := append([]string{filterAll}, h.available...)
	currentIndex := 0
	for i, f := range filters {
		if f == h.selectedFilter {
			currentIndex = i
			break
		}
	}
	h.selectedFilter = filters[(currentIndex+1)%len(filters)]
}

// SetCounts updates the shown/total record counter.
func (h *Header) SetCounts(shown, total int) {
	h.shown, h.total = shown, total
}

// SetSearch updates the search state
func (h *Header) SetSearch(query string, mode bool) {
	h.searchQuery = query
	h.searchMode = mode
}

// Render renders the header
func (h Header) Render(width int) string {
	section := lipgloss.NewStyle().
		Foreground(h.styles.PrimaryBlue).
		Bold(true).
		Padding(0, 2)

	policy := "default"
	if len(h.policy) > 0 {
		policy = strings.Join(h.policy, ",")
	}
	device := section.Render(fmt.Sprintf("%s [%s]", h.device, policy))

	filterLabel := h.selectedFilter
	if filterLabel != filterAll {
		filterLabel = PriorityLabel(filterLabel)
	}
	filter := section.Render(fmt.Sprintf("Priority: %s", filterLabel))
	counts := section.Foreground(h.styles.TextSecondary).Render(fmt.Sprintf("%d/%d", h.shown, h.total))

	var searchText string
	switch {
	case h.searchMode:
		searchText = fmt.Sprintf("Search: %s█", h.searchQuery)
	case h.searchQuery != "":
		searchText = fmt.Sprintf("Search: %s", h.searchQuery)
	default:
		searchText = "[/] to search"
	}
	searchStyle := lipgloss.NewStyle().
		Foreground(h.styles.TextSecondary).
		Padding(0, 2)
	if h.searchMode {
		searchStyle = searchStyle.Foreground(h.styles.PrimaryBlue)
	}
	search := searchStyle.Render(searchText)

	content := lipgloss.JoinHorizontal(lipgloss.Left, device, filter, counts, search)

	headerStyle := lipgloss.NewStyle().
		Background(h.styles.DarkBackground).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(h.styles.BorderColor).
		Width(width)

	return headerStyle.Render(content)
}
