// Package tui provides a terminal viewer for the records a device forwarded
// to the control plane.
package tui

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"logrero/src/contracts"
)

// loadTimeout bounds one fetch of records.
const loadTimeout = 30 * time.Second

// Loader fetches the records to show, newest first.
type Loader func(ctx context.Context) ([]contracts.StoredRecord, error)

// recordsMsg carries the result of a Loader call.
type recordsMsg struct {
	records []contracts.StoredRecord
	err     error
}

// MainModel is the Bubble Tea model of the record viewer: a table of records on
// top and the selected record in full below.
type MainModel struct {
	load   Loader
	styles *StyleConfig

	header         Header
	table          table.Model
	detailViewport viewport.Model
	progress       ProgressModel

	items    []Item
	filtered []Item

	searchQuery   string
	searchMode    bool
	detailFocused bool
	err           error

	width, height int
	ready         bool
}

// NewMainModel creates a viewer for device. policy is only displayed.
func NewMainModel(device string, policy []string, load Loader) MainModel {
	styles := DefaultStyles()

	t := table.New(
		table.WithColumns(columns(80)),
		table.WithFocused(true),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.BorderColor).
		BorderBottom(true).
		Foreground(styles.PrimaryBlue).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(styles.TextPrimary).
		Background(styles.SelectedColor).
		Bold(false)
	t.SetStyles(ts)

	return MainModel{
		load:           load,
		styles:         styles,
		header:         NewHeaderWithStyles(device, policy, styles),
		table:          t,
		detailViewport: viewport.New(0, 0),
		progress:       NewProgressModel("Loading records for " + device),
	}
}

// Run starts the viewer in the alternate screen and blocks until it quits.
func Run(device string, policy []string, load Loader) error {
	p := tea.NewProgram(NewMainModel(device, policy, load), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init starts the first fetch.
func (m MainModel) Init() tea.Cmd {
	return tea.Batch(SpinnerTick(), m.fetch())
}

func (m MainModel) fetch() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		records, err := load(ctx)
		return recordsMsg{records: records, err: err}
	}
}

// Update handles messages and updates the model state.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resizeComponents()
		return m, nil

	case SpinnerTickMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd

	case recordsMsg:
		m.progress = m.progress.Stop()
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.setItems(msg.records)
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.searchMode:
			return m.updateSearch(msg)
		case m.detailFocused:
			return m.updateDetail(msg)
		}
		return m.updateTable(msg)
	}
	return m, nil
}

func (m MainModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.searchMode = false
		m.searchQuery = ""
	case tea.KeyEnter:
		m.searchMode = false
	case tea.KeyBackspace:
		if r := []rune(m.searchQuery); len(r) > 0 {
			m.searchQuery = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.searchQuery += " "
	case tea.KeyRunes:
		m.searchQuery += string(msg.Runes)
	default:
		return m, nil
	}
	m.header.SetSearch(m.searchQuery, m.searchMode)
	m.applyFilter()
	return m, nil
}

func (m MainModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "enter":
		m.detailFocused = false
		m.table.Focus()
		return m, nil
	}
	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m MainModel) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Start()
		return m, tea.Batch(cmd, m.fetch())
	case "tab":
		m.header.CycleFilter()
		m.applyFilter()
		return m, nil
	case "/":
		m.searchMode = true
		m.header.SetSearch(m.searchQuery, true)
		return m, nil
	case "esc":
		if m.searchQuery != "" {
			m.searchQuery = ""
			m.header.SetSearch("", false)
			m.applyFilter()
		}
		return m, nil
	case "enter":
		if _, ok := m.selected(); ok {
			m.detailFocused = true
			m.table.Blur()
		}
		return m, nil
	}

	before := m.table.Cursor()
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	if m.table.Cursor() != before {
		if item, ok := m.selected(); ok {
			m.updateDetailContent(item)
		}
	}
	return m, cmd
}

// setItems replaces the records, newest first, and refreshes the filter choices.
func (m *MainModel) setItems(records []contracts.StoredRecord) {
	items := make([]Item, len(records))
	priorities := map[string]bool{}
	for i, r := range records {
		items[i] = Item{Stored: r}
		priorities[items[i].Priority()] = true
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Time().After(items[j].Time())
	})

	available := make([]string, 0, len(priorities))
	for p := range priorities {
		available = append(available, p)
	}

	m.items = items
	m.header.SetPriorities(available)
	m.applyFilter()
}

func (m MainModel) selected() (Item, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return Item{}, false
	}
	return m.filtered[i], true
}
