package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/parona-source/pkgcheck/pkg/report"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ReportListModel - Interactive finding browser
// =============================================================================

// ReportListModel is the bubbletea model for browsing scan findings.
type ReportListModel struct {
	records []report.Record
	names   []string // distinct record names, cycled by tab
	filter  int      // index into names; -1 means all
	visible []report.Record
	Cursor  int
	Height  int
	Offset  int
}

// NewReportListModel creates a report browser over the given records.
func NewReportListModel(records []report.Record) ReportListModel {
	var names []string
	seen := make(map[string]bool)
	for _, r := range records {
		if !seen[r.Name()] {
			seen[r.Name()] = true
			names = append(names, r.Name())
		}
	}
	m := ReportListModel{
		records: records,
		names:   names,
		filter:  -1,
		Height:  15,
	}
	m.applyFilter()
	return m
}

func (m *ReportListModel) applyFilter() {
	if m.filter < 0 {
		m.visible = m.records
	} else {
		name := m.names[m.filter]
		m.visible = nil
		for _, r := range m.records {
			if r.Name() == name {
				m.visible = append(m.visible, r)
			}
		}
	}
	m.Cursor = 0
	m.Offset = 0
}

func (m ReportListModel) Init() tea.Cmd {
	return nil
}

func (m ReportListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.visible)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "tab":
			if len(m.names) > 0 {
				m.filter++
				if m.filter >= len(m.names) {
					m.filter = -1
				}
				m.applyFilter()
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ReportListModel) View() string {
	var b strings.Builder

	title := "Findings"
	if m.filter >= 0 {
		title += ": " + m.names[m.filter]
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString(" ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("(%d)", len(m.visible))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⇥ filter  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.visible) {
		end = len(m.visible)
	}
	for i := m.Offset; i < end; i++ {
		rec := m.visible[i]
		line := fmt.Sprintf("%s  %s", rec.CPV(), rec.Name())
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render("> " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	if len(m.visible) == 0 {
		b.WriteString(listDimStyle.Render("  no findings"))
		b.WriteString("\n")
	} else if m.Cursor < len(m.visible) {
		b.WriteString("\n")
		b.WriteString(listDimStyle.Render(m.visible[m.Cursor].String()))
		b.WriteString("\n")
	}

	return b.String()
}
