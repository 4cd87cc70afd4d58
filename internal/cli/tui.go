package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/wnft/pkg/theme"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// errPickAborted is returned when the user quits a picker without choosing.
var errPickAborted = errors.New("selection aborted")

// pickItem is one choice. Label may carry styling; Value is returned.
type pickItem struct {
	Label string
	Value string
}

// pickModel is the bubbletea model for choosing one item from a list.
type pickModel struct {
	Title    string
	Items    []pickItem
	Cursor   int
	Selected *pickItem
}

func newPickModel(title string, items []pickItem, initial string) pickModel {
	m := pickModel{Title: title, Items: items}
	for i, it := range items {
		if it.Value == initial {
			m.Cursor = i
		}
	}
	return m
}

func (m pickModel) Init() tea.Cmd {
	return nil
}

func (m pickModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.Items)-1 {
			m.Cursor++
		}
	case "home", "g":
		m.Cursor = 0
	case "end", "G":
		m.Cursor = len(m.Items) - 1
	case "enter":
		it := m.Items[m.Cursor]
		m.Selected = &it
		return m, tea.Quit
	}
	return m, nil
}

func (m pickModel) View() string {
	var b strings.Builder
	b.WriteString(styleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")
	for i, it := range m.Items {
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render("▸ ") + it.Label)
		} else {
			b.WriteString("  " + listNormalStyle.Render(it.Label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Items))))
	return b.String()
}

// pick runs a picker on in/out and returns the chosen value.
func pick(m pickModel, in io.Reader, out io.Writer) (string, error) {
	final, err := tea.NewProgram(m, tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", err
	}
	if fm, ok := final.(pickModel); ok && fm.Selected != nil {
		return fm.Selected.Value, nil
	}
	return "", errPickAborted
}

func themeItems() []pickItem {
	items := make([]pickItem, 0, len(theme.Themes()))
	for _, t := range theme.Themes() {
		styles, _ := theme.Resolve(t)
		items = append(items, pickItem{Label: swatch(styles.Background, string(t)), Value: string(t)})
	}
	return items
}

func accentItems(t theme.Theme) []pickItem {
	items := make([]pickItem, 0, len(theme.Accents()))
	for _, a := range theme.Accents() {
		items = append(items, pickItem{Label: accentSwatch(t, a), Value: string(a)})
	}
	return items
}
