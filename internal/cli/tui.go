package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/flowforge/flowforge/pkg/ir"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ProgramModel - Interactive instruction browser
// =============================================================================

// ProgramModel is the bubbletea model for browsing an instruction program.
// The cursor selects one instruction; the detail pane shows its dependency
// neighborhood.
type ProgramModel struct {
	Path   string
	Instrs []ir.Instruction
	Cursor int
	Height int
	Offset int
}

// newProgramModel creates a browser over the given program.
func newProgramModel(path string, instrs []ir.Instruction) ProgramModel {
	return ProgramModel{
		Path:   path,
		Instrs: instrs,
		Height: 15,
	}
}

func (m ProgramModel) Init() tea.Cmd {
	return nil
}

func (m ProgramModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
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
			if m.Cursor < len(m.Instrs)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "g":
			m.Cursor = 0
			m.Offset = 0
		case "G":
			m.Cursor = len(m.Instrs) - 1
			if m.Cursor >= m.Height {
				m.Offset = m.Cursor - m.Height + 1
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ProgramModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Program %s", m.Path)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G first/last  q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Instrs) {
		end = len(m.Instrs)
	}

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		in := m.Instrs[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		rows = append(rows, []string{
			cursor,
			fmt.Sprintf("%d", i),
			in.Kind.String(),
			in.Label,
			refSummary(in),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "#", "Kind", "Label", "Refs").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(m.detailView())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Instrs))))

	return b.String()
}

// detailView renders the dependency neighborhood of the selected
// instruction.
func (m ProgramModel) detailView() string {
	anc, err := ir.Ancestors(m.Cursor, m.Instrs)
	if err != nil {
		return ""
	}
	desc, _ := ir.Descendants(m.Cursor, m.Instrs)
	kids, _ := ir.Children(m.Cursor, m.Instrs)

	var b strings.Builder
	b.WriteString(StyleHighlight.Render(m.Instrs[m.Cursor].String()))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  ancestors: %s", formatIndexSet(anc))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  children:  %v", kids)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  descendants: %s", formatIndexSet(desc))))
	return b.String()
}

// =============================================================================
// Helpers
// =============================================================================

// refSummary summarizes an instruction's target and inputs for the table.
func refSummary(in ir.Instruction) string {
	switch in.Kind {
	case ir.KindApply, ir.KindFit:
		parts := make([]string, 0, len(in.Inputs))
		for _, d := range in.Inputs {
			if d == ir.SourceIndex {
				parts = append(parts, "input")
			} else {
				parts = append(parts, fmt.Sprintf("%d", d))
			}
		}
		return fmt.Sprintf("→%d (%s)", in.Target, strings.Join(parts, ","))
	default:
		return ""
	}
}

// formatIndexSet renders an index set in ascending order.
func formatIndexSet(set map[int]bool) string {
	if len(set) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(set))
	for _, idx := range ir.SortedIndices(set) {
		parts = append(parts, fmt.Sprintf("%d", idx))
	}
	return strings.Join(parts, ", ")
}
