package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/templestay/internal/engine/region"
	"github.com/rendis/templestay/internal/model"
	"github.com/rendis/templestay/internal/tui/styles"
)

type SearchMode int

const (
	ModeText SearchMode = iota
	ModeRegion
	ModeAddress
)

var modeNames = []string{"Text", "Region", "Address"}

func (m SearchMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Text"
}

// Field indices; fieldMode is a virtual field (not a textinput)
const (
	fieldMode = iota
	fieldQuery
	fieldKind
	fieldSort
	fieldRadius
	fieldCount
)

type SearchModel struct {
	inputs      []textinput.Model
	mode        SearchMode
	focused     int
	err         string
	suggestions []string
	suggIdx     int
}

func NewSearchModel(kind model.Kind, sortKey model.SortKey) SearchModel {
	inputs := make([]textinput.Model, fieldCount)

	inputs[fieldMode] = textinput.New() // placeholder, never used
	inputs[fieldQuery] = newInput("조계사, 경주, templestay...", "", 40)
	inputs[fieldKind] = newInput("all | temple | stay", kind.String(), 10)
	inputs[fieldSort] = newInput("distance | popularity | recency | price", sortKey.String(), 12)
	inputs[fieldRadius] = newInput("2", "", 6)

	return SearchModel{
		inputs:  inputs,
		mode:    ModeText,
		focused: fieldMode,
		suggIdx: -1,
	}
}

func newInput(placeholder, value string, width int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 100
	if width > 0 {
		ti.Width = width
	}
	if value != "" {
		ti.SetValue(value)
	}
	return ti
}

func (m SearchModel) Init() tea.Cmd {
	return nil
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		key := msg.String()
		suggesting := m.focused == fieldQuery && len(m.suggestions) > 0

		switch key {
		case "esc":
			return m, func() tea.Msg { return NavigateToHome{} }

		case "up":
			if suggesting && m.suggIdx > 0 {
				m.suggIdx--
				return m, nil
			}
			m.err = ""
			return m, m.focusPrev()

		case "down":
			if suggesting && m.suggIdx < len(m.suggestions)-1 {
				m.suggIdx++
				return m, nil
			}
			m.err = ""
			return m, m.focusNext()

		case "tab":
			m.err = ""
			if suggesting {
				m.selectSuggestion()
			}
			return m, m.focusNext()

		case "shift+tab":
			m.err = ""
			return m, m.focusPrev()

		case "enter":
			if suggesting {
				m.selectSuggestion()
				return m, m.focusNext()
			}
			if cmd := m.submit(); cmd != nil {
				return m, cmd
			}

		case "left":
			if m.focused == fieldMode {
				m.mode = (m.mode + SearchMode(len(modeNames)) - 1) % SearchMode(len(modeNames))
				m.updateSuggestions()
				return m, nil
			}

		case "right":
			if m.focused == fieldMode {
				m.mode = (m.mode + 1) % SearchMode(len(modeNames))
				m.updateSuggestions()
				return m, nil
			}
		}
	}

	// Update focused textinput (skip mode field)
	var cmd tea.Cmd
	if m.focused != fieldMode && m.focused >= 0 && m.focused < fieldCount {
		m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	}
	if m.focused == fieldQuery {
		m.updateSuggestions()
	}
	return m, cmd
}

func (m *SearchModel) selectSuggestion() {
	if m.suggIdx >= 0 && m.suggIdx < len(m.suggestions) {
		m.inputs[fieldQuery].SetValue(m.suggestions[m.suggIdx])
		m.suggestions = nil
		m.suggIdx = -1
	}
}

// updateSuggestions offers administrative names while typing a region.
func (m *SearchModel) updateSuggestions() {
	raw := strings.TrimSpace(m.inputs[fieldQuery].Value())
	if m.mode != ModeRegion || raw == "" {
		m.suggestions = nil
		m.suggIdx = -1
		return
	}

	q := region.Normalize(raw)
	var matches []string
	for _, a := range region.Aliases {
		hit := strings.Contains(a.Full, q)
		for _, s := range a.Shorts {
			hit = hit || strings.HasPrefix(s, q)
		}
		if hit && a.Full != raw {
			matches = append(matches, a.Full)
			if len(matches) >= 5 {
				break
			}
		}
	}
	m.suggestions = matches
	if len(matches) > 0 {
		if m.suggIdx < 0 || m.suggIdx >= len(matches) {
			m.suggIdx = 0
		}
	} else {
		m.suggIdx = -1
	}
}

func (m *SearchModel) focusNext() tea.Cmd {
	if m.focused != fieldMode {
		m.inputs[m.focused].Blur()
	}
	m.focused = m.skipField(m.focused+1, 1)
	if m.focused >= fieldCount {
		m.focused = fieldMode
	}
	if m.focused == fieldMode {
		return nil
	}
	m.inputs[m.focused].Focus()
	return textinput.Blink
}

func (m *SearchModel) focusPrev() tea.Cmd {
	if m.focused != fieldMode {
		m.inputs[m.focused].Blur()
	}
	m.focused = m.skipField(m.focused-1, -1)
	if m.focused < 0 {
		m.focused = m.skipField(fieldCount-1, -1)
	}
	if m.focused == fieldMode {
		return nil
	}
	m.inputs[m.focused].Focus()
	return textinput.Blink
}

// skipField steps over the radius field outside address mode.
func (m *SearchModel) skipField(idx, dir int) int {
	for idx > fieldMode && idx < fieldCount {
		if m.mode != ModeAddress && idx == fieldRadius {
			idx += dir
			continue
		}
		break
	}
	return idx
}

func (m *SearchModel) submit() tea.Cmd {
	text := strings.TrimSpace(m.inputs[fieldQuery].Value())
	if text == "" && m.mode != ModeText {
		m.err = fmt.Sprintf("%s is required", m.mode)
		return nil
	}

	kind, err := model.ParseKind(m.inputs[fieldKind].Value())
	if err != nil {
		m.err = "Kind must be all, temple or stay"
		return nil
	}
	sortKey, err := model.ParseSortKey(m.inputs[fieldSort].Value())
	if err != nil {
		m.err = "Sort must be distance, popularity, recency or price"
		return nil
	}

	var radius float64
	if m.mode == ModeAddress {
		if raw := strings.TrimSpace(m.inputs[fieldRadius].Value()); raw != "" {
			radius, err = strconv.ParseFloat(raw, 64)
			if err != nil || radius <= 0 {
				m.err = "Radius must be a positive number of km"
				return nil
			}
		}
	}

	if m.mode == ModeRegion {
		if full, ok := region.Canonical(text); ok {
			text = full
		}
	}

	req := StartSearchMsg{Mode: m.mode, Text: text, Kind: kind, Sort: sortKey, RadiusKm: radius}
	return func() tea.Msg { return req }
}

func (m SearchModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("Search") + "\n\n")

	b.WriteString(m.renderMode())
	b.WriteString("\n")

	label := "Name or place:"
	switch m.mode {
	case ModeRegion:
		label = "Region:"
	case ModeAddress:
		label = "Address:"
	}
	b.WriteString(m.renderField(label, fieldQuery))
	if m.focused == fieldQuery && len(m.suggestions) > 0 {
		b.WriteString(m.renderSuggestions())
	}
	b.WriteString(m.renderField("Kind:", fieldKind))
	b.WriteString(m.renderField("Sort:", fieldSort))
	if m.mode == ModeAddress {
		b.WriteString(m.renderField("Radius (km):", fieldRadius))
	}

	if m.mode == ModeText && m.focused == fieldQuery {
		hint := lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("  matches names, regions (경북 = 경상북도) and addresses; empty lists everything")
		b.WriteString(hint + "\n")
	}

	if m.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render("  " + m.err))
	}

	b.WriteString("\n\n")
	b.WriteString(styles.StatusBar.Render("enter search • tab next • esc back"))

	return styles.Border.Render(b.String())
}

func (m SearchModel) renderSuggestions() string {
	var sb strings.Builder
	active := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(styles.Muted)

	for i, s := range m.suggestions {
		if i == m.suggIdx {
			sb.WriteString(active.Render("  > " + s))
		} else {
			sb.WriteString(inactive.Render("    " + s))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m SearchModel) renderMode() string {
	label := styles.Label.Render("Mode:")

	active := lipgloss.NewStyle().Foreground(styles.Primary).Bold(true)
	inactive := lipgloss.NewStyle().Foreground(styles.Muted)

	parts := make([]string, len(modeNames))
	for i, name := range modeNames {
		if SearchMode(i) == m.mode {
			parts[i] = active.Render("< " + name + " >")
		} else {
			parts[i] = inactive.Render(name)
		}
	}
	line := label + "  " + strings.Join(parts, "   ")

	if m.focused == fieldMode {
		line += lipgloss.NewStyle().Foreground(styles.Secondary).Render(" ←→")
	}
	return line + "\n"
}

func (m SearchModel) renderField(label string, idx int) string {
	l := styles.Label.Render(label)
	v := m.inputs[idx].View()
	return fmt.Sprintf("%s %s\n", l, v)
}

// StartSearchMsg runs one search and opens its results.
type StartSearchMsg struct {
	Mode     SearchMode
	Text     string
	Kind     model.Kind
	Sort     model.SortKey
	RadiusKm float64
}
