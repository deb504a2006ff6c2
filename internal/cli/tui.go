package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/mlateration/pkg/graph"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// solutionModel - Scrollable solution table
// =============================================================================

// solutionModel is the bubbletea model behind solve --interactive.
type solutionModel struct {
	title  string
	rows   [][]string
	cursor int
	offset int
	height int
}

func newSolutionModel(s *graph.Solution) solutionModel {
	title := fmt.Sprintf("Solution · %d rounds", s.Rounds)
	if !s.Converged {
		title += " · round limit reached"
	}
	return solutionModel{title: title, rows: solutionRows(s), height: 15}
}

func (m solutionModel) Init() tea.Cmd {
	return nil
}

func (m solutionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "home", "g":
			m.cursor, m.offset = 0, 0
		case "end", "G":
			m.cursor = max(len(m.rows)-1, 0)
			m.offset = max(len(m.rows)-m.height, 0)
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-7, 5)
		if m.cursor >= m.offset+m.height {
			m.offset = m.cursor - m.height + 1
		}
	}
	return m, nil
}

func (m solutionModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G top/bottom  q quit"))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.rows))
	b.WriteString(solutionTable(m.rows[m.offset:end], m.cursor-m.offset))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", min(m.cursor+1, len(m.rows)), len(m.rows))))

	return b.String()
}
