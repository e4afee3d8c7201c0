package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/templestay/internal/tui/styles"
)

type menuItem struct {
	key   string
	label string
	desc  string
	msg   tea.Msg // nil quits
}

// HomeModel is the start menu. Every item can be picked with its hotkey.
type HomeModel struct {
	items  []menuItem
	cursor int
	venues int
}

func NewHomeModel(venues int) HomeModel {
	return HomeModel{
		venues: venues,
		items: []menuItem{
			{key: "m", label: "Nearby Map", desc: "Temples and stays around you", msg: NavigateToNearby{}},
			{key: "s", label: "Search", desc: "Find by name, region or address", msg: NavigateToSearch{}},
			{key: "r", label: "Recent Searches", desc: "Run a previous search again", msg: NavigateToRecent{}},
			{key: "i", label: "Import Venues", desc: "Load a .csv file into the local store", msg: NavigateToImport{}},
			{key: "q", label: "Quit", desc: "Exit templestay"},
		},
	}
}

func (m HomeModel) Init() tea.Cmd {
	return nil
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch k := key.String(); k {
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, len(m.items)-1)
	case "enter":
		return m, m.selected()
	default:
		if k == "/" {
			k = "s"
		}
		for i, item := range m.items {
			if item.key == k {
				m.cursor = i
				return m, m.selected()
			}
		}
	}
	return m, nil
}

func (m HomeModel) selected() tea.Cmd {
	next := m.items[m.cursor].msg
	if next == nil {
		return tea.Quit
	}
	return func() tea.Msg { return next }
}

func (m HomeModel) View() string {
	var b strings.Builder
	muted := lipgloss.NewStyle().Foreground(styles.Muted)
	hotkey := lipgloss.NewStyle().Foreground(styles.Secondary).Bold(true)

	b.WriteString(lipgloss.NewStyle().Foreground(styles.Primary).Bold(true).Render("  templestay"))
	b.WriteString(muted.Render(fmt.Sprintf("  %d venues", m.venues)))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Secondary).Italic(true).Render("  Temples and temple stays near you"))
	b.WriteString("\n\n")
	if m.venues == 0 {
		b.WriteString(styles.Notice.Render("  The store is empty; press i to import venues"))
		b.WriteString("\n\n")
	}

	for i, item := range m.items {
		prefix, style := "  ", styles.InactiveItem
		if i == m.cursor {
			prefix, style = "> ", styles.ActiveItem
		}
		fmt.Fprintf(&b, "%s%s %s%s\n", prefix,
			hotkey.Render("["+item.key+"]"), style.Render(item.label), muted.Render(" - "+item.desc))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("↑↓ navigate • enter select • q quit"))
	return styles.Border.Render(b.String())
}
