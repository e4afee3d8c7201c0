package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rendis/templestay/internal/tui/styles"
)

type RecentEntry struct {
	Search StartSearchMsg
	At     time.Time
}

type RecentModel struct {
	entries []RecentEntry
	cursor  int
}

func NewRecentModel(entries []RecentEntry) RecentModel {
	return RecentModel{entries: entries}
}

func (m RecentModel) Init() tea.Cmd {
	return nil
}

func (m RecentModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case "enter":
			if m.cursor < len(m.entries) {
				req := m.entries[m.cursor].Search
				return m, func() tea.Msg { return req }
			}
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }
		}
	}
	return m, nil
}

func (m RecentModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Recent Searches"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("No recent searches"))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return styles.Border.Render(b.String())
	}

	for i, entry := range m.entries {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		s := entry.Search
		text := s.Text
		if text == "" {
			text = "(everything)"
		}
		detail := fmt.Sprintf("  %s • %s • by %s", s.Mode, s.Kind, s.Sort)
		if s.RadiusKm > 0 {
			detail += fmt.Sprintf(" • %gkm", s.RadiusKm)
		}
		detail += "  " + humanize.Time(entry.At)

		b.WriteString(fmt.Sprintf("%s%s\n%s\n", cursor, style.Render(text),
			lipgloss.NewStyle().Foreground(styles.Muted).Render(detail)))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter search again • esc back"))

	return styles.Border.Render(b.String())
}
