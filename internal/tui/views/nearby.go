package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/viewport"
	"github.com/rendis/templestay/internal/model"
	"github.com/rendis/templestay/internal/tui/components"
	"github.com/rendis/templestay/internal/tui/styles"
)

// panFraction is how far one arrow press moves the center, relative to the radius.
const panFraction = 0.5

// maxZoomLevel is the first level past the radius table; it maps to geo.WideRadiusKm.
const maxZoomLevel = 10

// NearbyModel is the map screen: a braille viewport next to the venue list.
type NearbyModel struct {
	ctrl    *viewport.Controller
	mapView *components.MapView
	pending *model.Coordinate
	cursor  int
	width   int
	height  int
}

// NewNearbyModel opens the map at the user position, or at center when it is set.
func NewNearbyModel(env Env, center *model.Coordinate) NearbyModel {
	mv := components.NewMapView(60, 20)
	ctrl := viewport.New(env.Search, env.Locator, env.Labeler, mv, viewport.Options{
		Kind:     env.Kind,
		SortKey:  env.Sort,
		Zoom:     &env.Zoom,
		Debounce: env.Debounce,
	}, env.Logger)
	return NearbyModel{ctrl: ctrl, mapView: mv, pending: center}
}

func (m NearbyModel) Init() tea.Cmd {
	return m.ctrl.Init()
}

// Close cancels the in-flight query; call it when leaving the screen.
func (m NearbyModel) Close() {
	m.ctrl.Close()
}

func (m NearbyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.mapView.SetSize(m.mapWidth(), max(m.height-8, 6))
		return m, nil

	case tea.KeyMsg:
		state := m.ctrl.State()
		step := state.RadiusKm * panFraction
		switch msg.String() {
		case "esc", "q":
			m.ctrl.Close()
			return m, func() tea.Msg { return NavigateToHome{} }
		case "up", "k":
			return m, m.ctrl.Update(viewport.PanMsg{Center: geo.Offset(state.Center, 0, step)})
		case "down", "j":
			return m, m.ctrl.Update(viewport.PanMsg{Center: geo.Offset(state.Center, 180, step)})
		case "left", "h":
			return m, m.ctrl.Update(viewport.PanMsg{Center: geo.Offset(state.Center, 270, step)})
		case "right", "l":
			return m, m.ctrl.Update(viewport.PanMsg{Center: geo.Offset(state.Center, 90, step)})
		case "+", "=":
			// lower levels cover a smaller radius
			if state.ZoomLevel > 1 {
				return m, m.ctrl.Update(viewport.ZoomMsg{Level: state.ZoomLevel - 1})
			}
			return m, nil
		case "-", "_":
			if state.ZoomLevel < maxZoomLevel {
				return m, m.ctrl.Update(viewport.ZoomMsg{Level: state.ZoomLevel + 1})
			}
			return m, nil
		case "c":
			return m, m.ctrl.Update(viewport.LocateMsg{})
		case "s":
			m.ctrl.Update(viewport.SortMsg{Key: nextSort(m.ctrl.SortKey())})
			return m, nil
		case "tab":
			if n := len(m.ctrl.Venues()); n > 0 {
				m.cursor = (m.cursor + 1) % n
			}
			return m, nil
		case "enter":
			// recenter on the highlighted venue
			venues := m.ctrl.Venues()
			if m.cursor < len(venues) && venues[m.cursor].Coordinate != nil {
				return m, m.ctrl.Update(viewport.PanMsg{Center: *venues[m.cursor].Coordinate})
			}
			return m, nil
		}
		return m, nil
	}

	wasLocated := m.ctrl.Located()
	cmd := m.ctrl.Update(msg)
	if _, ok := msg.(viewport.ResultsMsg); ok {
		m.cursor = min(m.cursor, max(len(m.ctrl.Venues())-1, 0))
	}
	if !wasLocated && m.ctrl.Located() && m.pending != nil {
		center := *m.pending
		m.pending = nil
		cmd = tea.Batch(cmd, m.ctrl.Update(viewport.PanMsg{Center: center}))
	}
	return m, cmd
}

func nextSort(k model.SortKey) model.SortKey {
	for i, s := range sortCycle {
		if s == k {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

func (m NearbyModel) mapWidth() int {
	return max(m.width*3/5-4, 20)
}

func (m NearbyModel) View() string {
	var b strings.Builder
	state := m.ctrl.State()

	b.WriteString(styles.Title.Render("Nearby"))
	header := fmt.Sprintf("  %s • zoom %d • radius %s • sorted by %s",
		state.Center, state.ZoomLevel, geo.FormatDistance(state.RadiusKm), m.ctrl.SortKey())
	if user := m.ctrl.UserLocation(); user != nil && *user != state.Center {
		header += fmt.Sprintf(" • %s from you", geo.FormatDistance(geo.DistanceKm(*user, state.Center)))
	}
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(header))
	b.WriteString("\n")
	if label := m.ctrl.Label(); label != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Secondary).Render(truncate(label, max(m.width-2, 20))))
		b.WriteString("\n")
	}
	if notice := m.ctrl.Notice(); notice != "" {
		b.WriteString(styles.Notice.Render(notice))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	mapBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Render(m.mapView.View())

	listW := max(m.width-m.mapWidth()-6, 24)
	list := lipgloss.NewStyle().Width(listW).Render(m.renderList(listW))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, mapBox, "  ", list))
	b.WriteString("\n\n")
	b.WriteString(styles.StatusBar.Render("←↑↓→ pan • +/- zoom • c locate • s sort • tab select • enter center • esc back"))
	return b.String()
}

func (m NearbyModel) renderList(width int) string {
	var b strings.Builder
	muted := lipgloss.NewStyle().Foreground(styles.Muted)

	switch {
	case !m.ctrl.Located():
		return muted.Italic(true).Render("Locating...")
	case m.ctrl.Err() != nil:
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Query failed: %v", m.ctrl.Err())))
		b.WriteString("\n")
		b.WriteString(muted.Render("pan or zoom to retry"))
		return b.String()
	}

	venues := m.ctrl.Venues()
	count := fmt.Sprintf("%d venues", len(venues))
	if m.ctrl.Loading() {
		count += " • loading"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Secondary).Render(count))
	b.WriteString("\n\n")

	if len(venues) == 0 && !m.ctrl.Loading() {
		b.WriteString(muted.Italic(true).Render("Nothing within this radius.\nZoom out with -"))
		return b.String()
	}

	rows := max(m.height-10, 5)
	start := max(m.cursor-rows+1, 0)
	end := min(start+rows, len(venues))
	for i := start; i < end; i++ {
		v := venues[i]
		prefix := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			prefix = "> "
			style = styles.ActiveItem
		}
		dist := styles.Distance.Render(fmt.Sprintf("%7s", v.FormattedDistance))
		name := truncate(v.Name, max(width-12, 8))
		b.WriteString(fmt.Sprintf("%s%s %s\n", prefix, dist, style.Render(name)))
	}
	return b.String()
}
