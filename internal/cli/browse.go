package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mfeldweg/crossgraph/pkg/integration"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command: an interactive integration
// point browser.
func (c *CLI) browseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse integration points interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			m, _, err := c.newManager(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			sp := newSpinnerWithContext(ctx, "scanning repositories...")
			sp.Start()
			points, err := m.Points(ctx)
			sp.Stop()
			if err != nil {
				return err
			}
			if len(points) == 0 {
				printInfo("no integration points found")
				return nil
			}

			model := NewPointListModel(points)
			_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
			return err
		},
	}
}

// =============================================================================
// PointListModel - Interactive integration point browser
// =============================================================================

// PointListModel is the bubbletea model for browsing integration points.
// Enter toggles between the pair list and the detail of one pair.
type PointListModel struct {
	Points   []integration.Point
	Cursor   int
	Detailed bool
}

// NewPointListModel creates a new point list model.
func NewPointListModel(points []integration.Point) PointListModel {
	return PointListModel{Points: points}
}

func (m PointListModel) Init() tea.Cmd {
	return nil
}

func (m PointListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.Detailed {
				m.Detailed = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if !m.Detailed && m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if !m.Detailed && m.Cursor < len(m.Points)-1 {
				m.Cursor++
			}
		case "enter":
			m.Detailed = !m.Detailed
		}
	}
	return m, nil
}

func (m PointListModel) View() string {
	if m.Detailed {
		return m.detailView()
	}
	return m.listView()
}

func (m PointListModel) listView() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Integration Points"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	for i, p := range m.Points {
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		line := fmt.Sprintf("%s%s %s %s  %s", cursor, p.Repos[0], iconArrow, p.Repos[1],
			listDimStyle.Render(fmt.Sprintf("%d symbols, %d connections",
				len(p.SharedSymbols), len(p.Connections))))

		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render(line))
		} else {
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Points))))

	return b.String()
}

func (m PointListModel) detailView() string {
	p := m.Points[m.Cursor]

	var b strings.Builder
	b.WriteString(StyleTitle.Render(p.Repos[0] + " " + iconArrow + " " + p.Repos[1]))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("⏎/esc back  q quit"))
	b.WriteString("\n\n")

	if len(p.SharedSymbols) > 0 {
		b.WriteString(StyleHighlight.Render("Shared symbols"))
		b.WriteString("\n")
		for _, s := range p.SharedSymbols {
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", s.Type, s.Name,
				listDimStyle.Render(s.FileA+" | "+s.FileB)))
		}
		b.WriteString("\n")
	}

	if len(p.Connections) > 0 {
		b.WriteString(StyleHighlight.Render("API connections"))
		b.WriteString("\n")
		for _, conn := range p.Connections {
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", conn.Provider.Path,
				listDimStyle.Render("←"), conn.Consumer.Node))
		}
	}

	return b.String()
}
