package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/parona-source/pkgcheck/pkg/report"
)

func browserRecords() []report.Record {
	return []report.Record{
		&report.NonExistentDeps{
			Coords: report.Coords{Category: "dev-libs", Package: "foo", Version: "1.0"},
			Attr:   "depends",
			Atoms:  []string{"dev-libs/gone"},
		},
		&report.VcsVisible{
			Coords:      report.Coords{Category: "dev-vcs", Package: "tool", Version: "9999"},
			Arch:        "amd64",
			ProfileName: "default/linux/amd64",
		},
		&report.NonExistentDeps{
			Coords: report.Coords{Category: "dev-libs", Package: "bar", Version: "2.0"},
			Attr:   "rdepends",
			Atoms:  []string{"dev-libs/lost"},
		},
	}
}

func keyPress(m ReportListModel, key string) ReportListModel {
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, _ := m.Update(msg)
	return next.(ReportListModel)
}

func TestReportListModelView(t *testing.T) {
	m := NewReportListModel(browserRecords())

	view := m.View()
	if !strings.Contains(view, "Findings") {
		t.Error("view should contain title")
	}
	if !strings.Contains(view, "(3)") {
		t.Errorf("view should show count of 3, got:\n%s", view)
	}
	if !strings.Contains(view, "dev-libs/foo-1.0") {
		t.Error("view should list the first record")
	}
}

func TestReportListModelNavigation(t *testing.T) {
	m := NewReportListModel(browserRecords())

	m = keyPress(m, "down")
	if m.Cursor != 1 {
		t.Errorf("cursor = %d after down, want 1", m.Cursor)
	}

	m = keyPress(m, "j")
	m = keyPress(m, "j") // past the end, should clamp
	if m.Cursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped)", m.Cursor)
	}

	m = keyPress(m, "up")
	m = keyPress(m, "k")
	m = keyPress(m, "k") // past the top, should clamp
	if m.Cursor != 0 {
		t.Errorf("cursor = %d, want 0 (clamped)", m.Cursor)
	}
}

func TestReportListModelFilter(t *testing.T) {
	m := NewReportListModel(browserRecords())

	// tab to the first distinct record name
	m = keyPress(m, "tab")
	view := m.View()
	if !strings.Contains(view, "(2)") {
		t.Errorf("filtered view should show 2 NonExistentDeps findings, got:\n%s", view)
	}

	m = keyPress(m, "tab")
	view = m.View()
	if !strings.Contains(view, "(1)") {
		t.Errorf("filtered view should show 1 VcsVisible finding, got:\n%s", view)
	}

	// cycling past the last name returns to all
	m = keyPress(m, "tab")
	view = m.View()
	if !strings.Contains(view, "(3)") {
		t.Errorf("view should show all 3 findings again, got:\n%s", view)
	}
}

func TestReportListModelQuit(t *testing.T) {
	m := NewReportListModel(browserRecords())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should produce a quit command")
	}
}

func TestReportListModelEmpty(t *testing.T) {
	m := NewReportListModel(nil)

	view := m.View()
	if !strings.Contains(view, "no findings") {
		t.Errorf("empty view should say no findings, got:\n%s", view)
	}
}

func TestReportListModelResize(t *testing.T) {
	m := NewReportListModel(browserRecords())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(ReportListModel)
	if m.Height != 24 {
		t.Errorf("height = %d, want 24", m.Height)
	}

	next, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 8})
	m = next.(ReportListModel)
	if m.Height != 5 {
		t.Errorf("height = %d, want minimum 5", m.Height)
	}
}
