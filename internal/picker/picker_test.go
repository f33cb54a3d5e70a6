package picker

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func testItems() []Item {
	return []Item{
		{Name: "Post", Table: "posts", DependsOn: []string{"users"}},
		{Name: "User", Table: "users"},
		{Name: "Comment", Table: "comments", DependsOn: []string{"posts", "users"}},
		{Name: "Tag", Table: "tags"},
	}
}

func press(m Model, msgs ...tea.KeyMsg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	space = tea.KeyMsg{Type: tea.KeySpace}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestNew(t *testing.T) {
	m := New(testItems(), []string{"User"})
	if len(m.visibleIdxs) != 4 {
		t.Fatalf("expected 4 visible, got %d", len(m.visibleIdxs))
	}
	// sorted by name
	if got := m.entries[0].item.Name; got != "Comment" {
		t.Errorf("expected Comment first, got %s", got)
	}
	if got := m.Selected(); len(got) != 1 || got[0] != "User" {
		t.Errorf("unexpected preselection %v", got)
	}
}

func TestToggleAndConfirm(t *testing.T) {
	m := press(New(testItems(), nil), down, space)
	if got := m.Selected(); len(got) != 1 || got[0] != "Post" {
		t.Fatalf("expected Post selected, got %v", got)
	}

	m = press(m, space)
	if m.selectedCount() != 0 {
		t.Errorf("second toggle should deselect")
	}

	m = press(m, enter)
	if m.Done() {
		t.Error("empty selection must not confirm")
	}

	m = press(m, space, enter)
	if !m.Done() || m.Cancelled() {
		t.Error("expected confirmed selection")
	}
}

func TestAllNone(t *testing.T) {
	m := press(New(testItems(), nil), runes("a"))
	if m.selectedCount() != 4 {
		t.Errorf("expected 4 selected, got %d", m.selectedCount())
	}
	m = press(m, runes("n"))
	if m.selectedCount() != 0 {
		t.Errorf("expected 0 selected, got %d", m.selectedCount())
	}
}

func TestQuit(t *testing.T) {
	m := press(New(testItems(), nil), runes("q"))
	if !m.Cancelled() || !m.Done() {
		t.Error("q should cancel")
	}
}

func TestFilter(t *testing.T) {
	m := press(New(testItems(), nil), runes("/"), runes("p"), runes("o"))
	if !m.filtering {
		t.Fatal("expected filter mode")
	}
	if len(m.visibleIdxs) != 1 || m.entries[m.visibleIdxs[0]].item.Name != "Post" {
		t.Fatalf("expected only Post visible, got %v", m.visibleIdxs)
	}

	// keys go to the filter, not the list
	m = press(m, runes("a"))
	if m.selectedCount() != 0 {
		t.Error("typing in the filter must not select")
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyBackspace}, enter, runes("a"))
	if m.filtering {
		t.Error("enter should leave filter mode")
	}
	if got := m.Selected(); len(got) != 1 || got[0] != "Post" {
		t.Errorf("select all should only touch visible models, got %v", got)
	}

	m = press(m, runes("/"), runes("x"), esc)
	if len(m.visibleIdxs) != 4 {
		t.Errorf("esc should clear the filter, got %d visible", len(m.visibleIdxs))
	}
}

func TestFilterMatchesTable(t *testing.T) {
	m := press(New(testItems(), nil), runes("/"), runes("tags"))
	if len(m.visibleIdxs) != 1 {
		t.Errorf("expected one match, got %d", len(m.visibleIdxs))
	}
}

func TestSelectDependencies(t *testing.T) {
	m := New(testItems(), []string{"Comment"})
	if got := m.MissingDependencies(); len(got) != 2 {
		t.Errorf("expected 2 missing dependencies, got %v", got)
	}

	m = press(m, runes("d"))
	got := strings.Join(m.Selected(), ",")
	if got != "Comment,Post,User" {
		t.Errorf("unexpected selection %s", got)
	}
	if missing := m.MissingDependencies(); len(missing) != 0 {
		t.Errorf("expected no missing dependencies, got %v", missing)
	}
}

func TestCycleSort(t *testing.T) {
	m := press(New(testItems(), nil), runes("s"))
	if m.sortAsc || m.entries[0].item.Name != "User" {
		t.Errorf("expected descending name sort, got %s first", m.entries[0].item.Name)
	}
	m = press(m, runes("s"))
	if m.sortField != SortByTable || m.entries[0].item.Table != "comments" {
		t.Errorf("expected ascending table sort, got %s first", m.entries[0].item.Table)
	}
}

func TestView(t *testing.T) {
	m := New(testItems(), []string{"Post"})
	v := m.View()
	for _, want := range []string{"Select Models", "Selected: 1 of 4 models", "Post depends on User (not selected)"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
