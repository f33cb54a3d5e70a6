// Package picker is the interactive model selector used by bulk migration
// generation.
package picker

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user quits without confirming.
var ErrCancelled = errors.New("selection cancelled")

// Item is one selectable model.
type Item struct {
	Name      string
	Table     string
	DependsOn []string // tables
}

// SortField controls the ordering of the list.
type SortField int

const (
	SortByName SortField = iota
	SortByTable
	SortByDeps
)

var sortLabels = []string{"name", "table", "deps"}

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Home    key.Binding
	End     key.Binding
	Toggle  key.Binding
	All     key.Binding
	None    key.Binding
	Filter  key.Binding
	Sort    key.Binding
	Deps    key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Home:    key.NewBinding(key.WithKeys("home", "g")),
	End:     key.NewBinding(key.WithKeys("end", "G")),
	Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	All:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "all")),
	None:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "none")),
	Filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Sort:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Deps:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "add deps")),
	Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

type entry struct {
	item     Item
	selected bool
	visible  bool
}

// Model is the bubbletea model for selecting models.
type Model struct {
	entries []entry
	cursor  int

	filter    textinput.Model
	filtering bool

	sortField SortField
	sortAsc   bool

	done      bool
	cancelled bool
	width     int
	height    int

	visibleIdxs []int
}

// New creates a selector over items. preSelected names start checked.
func New(items []Item, preSelected []string) Model {
	entries := make([]entry, len(items))
	for i, it := range items {
		entries[i] = entry{item: it, selected: slices.Contains(preSelected, it.Name), visible: true}
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "model or table"
	ti.CharLimit = 64

	m := Model{
		entries: entries,
		filter:  ti,
		sortAsc: true,
		width:   80,
		height:  24,
	}
	m.sortEntries()
	m.recomputeVisible()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.cancelled = true
		m.done = true
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, keys.Home):
		m.cursor = 0

	case key.Matches(msg, keys.End):
		m.cursor = max(0, len(m.visibleIdxs)-1)

	case key.Matches(msg, keys.Toggle):
		m.toggleCurrent()

	case key.Matches(msg, keys.All):
		m.setVisible(true)

	case key.Matches(msg, keys.None):
		m.setVisible(false)

	case key.Matches(msg, keys.Filter):
		m.filtering = true
		m.filter.SetValue("")
		m.applyFilter()
		return m, m.filter.Focus()

	case key.Matches(msg, keys.Sort):
		m.cycleSort()

	case key.Matches(msg, keys.Deps):
		m.selectDependencies()

	case key.Matches(msg, keys.Confirm):
		if m.selectedCount() == 0 {
			return m, nil
		}
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil

	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Select Models") + "\n\n")

	if m.filtering {
		b.WriteString(highlightStyle.Render("  Filter: ") + m.filter.View() + "\n\n")
	} else if v := m.filter.Value(); v != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  Filter: %s (/ to change, esc in filter to clear)", v)) + "\n\n")
	}

	header := fmt.Sprintf("  %-3s %-28s %-28s %s", "", "Model", "Table", "Depends on")
	b.WriteString(dimStyle.Render(header) + "\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", min(max(m.width-4, 10), 76))) + "\n")

	listHeight := max(m.height-12, 5)
	start := 0
	if m.cursor >= listHeight {
		start = m.cursor - listHeight + 1
	}
	end := min(start+listHeight, len(m.visibleIdxs))

	if len(m.visibleIdxs) == 0 {
		b.WriteString(dimStyle.Render("  No models match the filter") + "\n")
	}

	for vi := start; vi < end; vi++ {
		e := m.entries[m.visibleIdxs[vi]]

		checkbox := "[ ]"
		if e.selected {
			checkbox = selectedStyle.Render("[x]")
		}
		cursor := "  "
		nameStyle := lipgloss.NewStyle()
		if vi == m.cursor {
			cursor = highlightStyle.Render("> ")
			nameStyle = nameStyle.Bold(true)
		}

		b.WriteString(fmt.Sprintf("%s%s %-28s %-28s %s\n",
			cursor, checkbox, nameStyle.Render(truncate(e.item.Name, 28)),
			truncate(e.item.Table, 28), strings.Join(e.item.DependsOn, ", ")))
	}

	if len(m.visibleIdxs) > listHeight {
		b.WriteString(dimStyle.Render(fmt.Sprintf("\n  Showing %d-%d of %d", start+1, end, len(m.visibleIdxs))) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(summaryStyle.Render(fmt.Sprintf("  Selected: %d of %d models", m.selectedCount(), len(m.entries))) + "\n")

	missing := m.MissingDependencies()
	for i, msg := range missing {
		if i == 3 {
			b.WriteString(warnStyle.Render(fmt.Sprintf("  ⚠ ...and %d more unselected dependencies", len(missing)-3)) + "\n")
			break
		}
		b.WriteString(warnStyle.Render("  ⚠ "+msg) + "\n")
	}

	dir := "↑"
	if !m.sortAsc {
		dir = "↓"
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("  Sort: %s %s", sortLabels[m.sortField], dir)) + "\n\n")
	b.WriteString(dimStyle.Render("  space toggle • a all • n none • / filter • s sort • d add deps • enter confirm • q quit") + "\n")

	return b.String()
}

// Done reports whether the selector finished.
func (m Model) Done() bool { return m.done }

// Cancelled reports whether the user quit.
func (m Model) Cancelled() bool { return m.cancelled }

// Selected returns the checked model names in list order.
func (m Model) Selected() []string {
	var names []string
	for _, e := range m.entries {
		if e.selected {
			names = append(names, e.item.Name)
		}
	}
	return names
}

// MissingDependencies describes every dependency of a selected model whose
// table belongs to an unselected model.
func (m Model) MissingDependencies() []string {
	owner := make(map[string]int, len(m.entries))
	for i, e := range m.entries {
		owner[e.item.Table] = i
	}

	var out []string
	for _, e := range m.entries {
		if !e.selected {
			continue
		}
		for _, dep := range e.item.DependsOn {
			if i, ok := owner[dep]; ok && !m.entries[i].selected {
				out = append(out, fmt.Sprintf("%s depends on %s (not selected)", e.item.Name, m.entries[i].item.Name))
			}
		}
	}
	return out
}

// Run shows the selector and returns the confirmed model names.
func Run(items []Item, preSelected []string) ([]string, error) {
	if len(items) == 0 {
		return nil, errors.New("no models to select")
	}

	p := tea.NewProgram(New(items, preSelected), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("running model selection: %w", err)
	}

	m := final.(Model)
	if m.Cancelled() {
		return nil, ErrCancelled
	}
	return m.Selected(), nil
}

func (m *Model) moveCursor(delta int) {
	if len(m.visibleIdxs) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.visibleIdxs)-1)
}

func (m *Model) toggleCurrent() {
	if m.cursor < 0 || m.cursor >= len(m.visibleIdxs) {
		return
	}
	idx := m.visibleIdxs[m.cursor]
	m.entries[idx].selected = !m.entries[idx].selected
}

func (m *Model) setVisible(selected bool) {
	for _, idx := range m.visibleIdxs {
		m.entries[idx].selected = selected
	}
}

// selectDependencies checks every model that a selected model depends on,
// transitively.
func (m *Model) selectDependencies() {
	byTable := make(map[string]int, len(m.entries))
	for i, e := range m.entries {
		byTable[e.item.Table] = i
	}

	var queue []int
	for i, e := range m.entries {
		if e.selected {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		e := m.entries[queue[0]]
		queue = queue[1:]
		for _, dep := range e.item.DependsOn {
			i, ok := byTable[dep]
			if !ok || m.entries[i].selected {
				continue
			}
			m.entries[i].selected = true
			queue = append(queue, i)
		}
	}
}

func (m *Model) applyFilter() {
	q := strings.ToLower(m.filter.Value())
	for i := range m.entries {
		it := m.entries[i].item
		m.entries[i].visible = q == "" ||
			strings.Contains(strings.ToLower(it.Name), q) ||
			strings.Contains(strings.ToLower(it.Table), q)
	}
	m.recomputeVisible()
	if m.cursor >= len(m.visibleIdxs) {
		m.cursor = max(0, len(m.visibleIdxs)-1)
	}
}

func (m *Model) recomputeVisible() {
	m.visibleIdxs = m.visibleIdxs[:0]
	for i, e := range m.entries {
		if e.visible {
			m.visibleIdxs = append(m.visibleIdxs, i)
		}
	}
}

func (m *Model) cycleSort() {
	if m.sortAsc {
		m.sortAsc = false
	} else {
		m.sortField = (m.sortField + 1) % SortField(len(sortLabels))
		m.sortAsc = true
	}
	m.sortEntries()
	m.recomputeVisible()
	m.cursor = 0
}

func (m *Model) sortEntries() {
	sort.SliceStable(m.entries, func(i, j int) bool {
		a, b := m.entries[i].item, m.entries[j].item
		var less bool
		switch m.sortField {
		case SortByName:
			less = a.Name < b.Name
		case SortByTable:
			less = a.Table < b.Table
		case SortByDeps:
			less = len(a.DependsOn) < len(b.DependsOn)
		}
		if !m.sortAsc {
			return !less
		}
		return less
	})
}

func (m *Model) selectedCount() int {
	n := 0
	for _, e := range m.entries {
		if e.selected {
			n++
		}
	}
	return n
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-1] + "…"
}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).BorderStyle(lipgloss.DoubleBorder()).BorderBottom(true).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	summaryStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)
