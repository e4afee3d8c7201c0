package views

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/templestay/internal/engine/search"
	"github.com/rendis/templestay/internal/engine/storage"
	"github.com/rendis/templestay/internal/model"
	"github.com/rendis/templestay/internal/tui/styles"
)

type focusArea int

const (
	focusTable focusArea = iota
	focusFilter
	focusCard
	focusJSON
)

var sortCycle = []model.SortKey{model.SortDistance, model.SortPopularity, model.SortRecency, model.SortPriceAscending}

// ResultsModel shows one search's venues with table + detail panels.
type ResultsModel struct {
	env      Env
	req      StartSearchMsg
	venues   []model.Venue
	filtered []model.Venue
	table    table.Model
	filter   textinput.Model
	focus    focusArea
	selected int
	width    int
	height   int
	loading  bool
	err      error
	notice   string
	sortKey  model.SortKey
	status   string

	cardScrollY int
	cardLines   []string
	jsonScrollY int
	jsonLines   []string
}

type resultsLoadedMsg struct {
	result search.Result
	notice string
	err    error
}

func NewResultsModel(env Env, req StartSearchMsg) ResultsModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	return ResultsModel{
		env:      env,
		req:      req,
		filter:   filter,
		selected: -1,
		loading:  true,
		sortKey:  req.Sort,
	}
}

func (m ResultsModel) Init() tea.Cmd {
	return runSearch(m.env, m.req)
}

// runSearch locates the user first so every result can carry a distance.
func runSearch(env Env, req StartSearchMsg) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var center *model.Coordinate
		var notice string
		if env.Locator != nil {
			fix := env.Locator.CurrentLocation(ctx)
			center = &fix.Coordinate
			notice = fix.Notice()
		}

		var res search.Result
		var err error
		switch req.Mode {
		case ModeAddress:
			res, err = env.Search.AddressSearch(ctx, req.Text, req.RadiusKm, req.Sort, req.Kind)
		case ModeRegion:
			res, err = env.Search.Search(ctx, model.SearchQuery{Center: center, RegionFilter: req.Text, SortKey: req.Sort, Kind: req.Kind})
		default:
			res, err = env.Search.Search(ctx, model.SearchQuery{Center: center, FreeText: req.Text, SortKey: req.Sort, Kind: req.Kind})
		}
		if res.Notice != "" {
			notice = res.Notice
		}
		return resultsLoadedMsg{result: res, notice: notice, err: err}
	}
}

func (m ResultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()

	case resultsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.notice = msg.notice
		m.venues = msg.result.Venues
		m.applyFilter()
		m.updateLayout()
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch m.focus {
		case focusTable:
			switch key {
			case "esc", "q":
				return m, func() tea.Msg { return NavigateToSearch{} }
			case "/", "tab":
				m.focus = focusFilter
				m.filter.Focus()
				return m, textinput.Blink
			case "1":
				m.focus = focusCard
				m.table.SetStyles(unfocusedTableStyles())
				return m, nil
			case "2":
				m.focus = focusJSON
				m.table.SetStyles(unfocusedTableStyles())
				return m, nil
			case "s":
				m.cycleSort()
				return m, nil
			case "e":
				m.exportCSV()
				return m, nil
			case "r":
				if m.retryable() {
					m.loading = true
					m.err = nil
					return m, runSearch(m.env, m.req)
				}
			case "m":
				if v := m.current(); v != nil && v.Coordinate != nil {
					c := *v.Coordinate
					return m, func() tea.Msg { return NavigateToNearby{Center: &c} }
				}
			}

		case focusFilter:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.filter.Blur()
				return m, nil
			}

		case focusCard, focusJSON:
			lines := m.cardLines
			scroll := &m.cardScrollY
			if m.focus == focusJSON {
				lines = m.jsonLines
				scroll = &m.jsonScrollY
			}
			maxScroll := max(len(lines)-m.panelHeight(), 0)
			switch key {
			case "esc":
				m.focus = focusTable
				m.table.SetStyles(focusedTableStyles())
				return m, nil
			case "up", "k":
				if *scroll > 0 {
					*scroll--
				}
				return m, nil
			case "down", "j":
				if *scroll < maxScroll {
					*scroll++
				}
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
		cursor := m.table.Cursor()
		if cursor != m.selected && cursor < len(m.filtered) {
			m.selected = cursor
			m.cardScrollY = 0
			m.jsonScrollY = 0
			m.cacheDetailContent()
		}
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
	}
	return m, cmd
}

func (m ResultsModel) retryable() bool {
	var qerr *search.QueryError
	return errors.As(m.err, &qerr) && qerr.Retryable()
}

func (m *ResultsModel) current() *model.Venue {
	if m.selected < 0 || m.selected >= len(m.filtered) {
		return nil
	}
	return &m.filtered[m.selected]
}

func (m *ResultsModel) cycleSort() {
	next := sortCycle[0]
	for i, k := range sortCycle {
		if k == m.sortKey {
			next = sortCycle[(i+1)%len(sortCycle)]
		}
	}
	m.sortKey = next
	m.venues = search.Ranked(m.venues, m.sortKey)
	m.applyFilter()
}

func (m *ResultsModel) cacheDetailContent() {
	v := m.current()
	if v == nil {
		m.cardLines = nil
		m.jsonLines = nil
		return
	}
	m.cardLines = buildCardLines(*v)

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		m.jsonLines = []string{"JSON error"}
		return
	}
	m.jsonLines = strings.Split(string(data), "\n")
}

func buildCardLines(v model.Venue) []string {
	var lines []string

	lines = append(lines, v.Name)
	meta := v.Kind.String()
	if v.FormattedDistance != "" {
		meta += " • " + v.FormattedDistance
	}
	lines = append(lines, meta, "")

	addRow := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%-10s %s", label, value))
		}
	}
	addRow("Region:", v.Region)
	addRow("Address:", v.Address)
	if v.Coordinate != nil {
		addRow("Coords:", fmt.Sprintf("%.6f, %.6f", v.Coordinate.Lat, v.Coordinate.Lng))
	}
	addRow("Followers:", strconv.Itoa(v.PopularityScore))
	if v.PriceTier != nil {
		addRow("Price:", fmt.Sprintf("₩%d", *v.PriceTier))
	}
	if len(v.Tags) > 0 {
		addRow("Tags:", strings.Join(v.Tags, ", "))
	}
	if !v.CreatedAt.IsZero() {
		addRow("Added:", fmt.Sprintf("%s (%s)", v.CreatedAt.Format(time.DateOnly), humanize.Time(v.CreatedAt)))
	}
	if v.Description != "" {
		lines = append(lines, "", v.Description)
	}
	return lines
}

func (m *ResultsModel) buildTable(venues []model.Venue) {
	nameW, regionW, kindW, distW, popW, priceW := 26, 22, 7, 9, 9, 9
	if m.width > 110 {
		extra := m.width - 110
		nameW += extra / 2
		regionW += extra / 2
	}

	columns := []table.Column{
		{Title: "Name", Width: nameW},
		{Title: "Region", Width: regionW},
		{Title: "Kind", Width: kindW},
		{Title: "Distance", Width: distW},
		{Title: "Followers", Width: popW},
		{Title: "Price", Width: priceW},
	}

	rows := make([]table.Row, len(venues))
	for i, v := range venues {
		price := ""
		if v.PriceTier != nil {
			price = strconv.Itoa(*v.PriceTier)
		}
		rows[i] = table.Row{
			truncate(v.Name, nameW),
			truncate(v.Region, regionW),
			v.Kind.String(),
			v.FormattedDistance,
			strconv.Itoa(v.PopularityScore),
			price,
		}
	}

	height := max(m.height/2-4, 5)
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	t.SetStyles(focusedTableStyles())
	m.table = t
}

func focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func (m ResultsModel) panelHeight() int {
	return max(m.height/2-6, 6)
}

func (m *ResultsModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	m.buildTable(m.filtered)
}

// normalize removes accents/diacritics and lowercases text for fuzzy matching.
// Hangul syllables survive: NFC recomposes the jamo NFD split apart.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

// applyFilter narrows the loaded venues in place without re-querying.
func (m *ResultsModel) applyFilter() {
	words := strings.Fields(normalize(m.filter.Value()))
	m.filtered = m.filtered[:0:0]
	for _, v := range m.venues {
		haystack := normalize(strings.Join([]string{
			v.Name, v.Region, v.Address, v.Description, strings.Join(v.Tags, " "),
		}, " "))
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			m.filtered = append(m.filtered, v)
		}
	}
	m.buildTable(m.filtered)
	if len(m.filtered) > 0 {
		m.selected = 0
	} else {
		m.selected = -1
	}
	m.cacheDetailContent()
}

func (m ResultsModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%s search", m.req.Mode)
	if m.req.Text != "" {
		title += fmt.Sprintf(": %q", m.req.Text)
	}
	b.WriteString(styles.Title.Render(title))
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
		Render(fmt.Sprintf("  %d venues • sorted by %s", len(m.venues), m.sortKey)))
	if len(m.filtered) != len(m.venues) {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf(" (showing %d)", len(m.filtered))))
	}
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(styles.Notice.Render(m.notice) + "\n")
	}
	b.WriteString("\n")

	if m.loading {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).Render("Searching..."))
		return b.String()
	}
	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Search failed: %v", m.err)))
		b.WriteString("\n")
		hint := "esc back"
		if m.retryable() {
			hint = "r retry • esc back"
		}
		b.WriteString(styles.StatusBar.Render(hint))
		return b.String()
	}
	if len(m.venues) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).Render("No venues found"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return b.String()
	}

	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusFilter {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	detailW := max(m.width-2, 40)
	panelH := m.panelHeight()
	cardOuterW := detailW * 2 / 5
	jsonOuterW := detailW - cardOuterW - 1

	cardBox := panel("[1] Details", m.focus == focusCard, cardOuterW, panelH,
		m.viewLines(m.cardLines, m.cardScrollY, max(cardOuterW-4, 20), panelH, true))
	jsonBox := panel("[2] JSON", m.focus == focusJSON, jsonOuterW, panelH,
		m.viewLines(m.jsonLines, m.jsonScrollY, max(jsonOuterW-4, 20), panelH, false))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cardBox, " ", jsonBox))
	b.WriteString("\n\n")

	if m.status != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.status))
		b.WriteString("\n")
	}

	var statusText string
	switch m.focus {
	case focusTable:
		statusText = "↑↓ navigate • s sort • m map • / filter • 1 details • 2 json • e export • esc back"
	case focusFilter:
		statusText = "type to filter • esc back"
	default:
		statusText = "↑↓ scroll • esc back to table"
	}
	b.WriteString(styles.StatusBar.Render(statusText))
	return b.String()
}

func panel(label string, focused bool, outerW, h int, content string) string {
	color := styles.Muted
	if focused {
		color = styles.Primary
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1).
		Width(outerW - 2).
		Height(h).
		Render(content)
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(label) + "\n" + box
}

func (m ResultsModel) viewLines(lines []string, scrollY, w, h int, card bool) string {
	if len(lines) == 0 {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Select a venue\nto view details")
	}

	scrollY = max(min(scrollY, len(lines)-h), 0)
	end := min(scrollY+h, len(lines))
	visible := lines[scrollY:end]

	muted := lipgloss.NewStyle().Foreground(styles.Muted)
	text := lipgloss.NewStyle().Foreground(styles.Text)
	var sb strings.Builder
	for i, line := range visible {
		switch {
		case card && scrollY+i == 0:
			sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Text).Render(truncate(line, w)))
		case card && scrollY+i == 1:
			sb.WriteString(styles.Distance.Render(truncate(line, w)))
		case card:
			sb.WriteString(text.Render(truncate(line, w)))
		default:
			sb.WriteString(muted.Render(truncate(line, w)))
		}
		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}
	if scrollY > 0 || end < len(lines) {
		sb.WriteString("\n")
		sb.WriteString(muted.Render(fmt.Sprintf("  [%d/%d]", scrollY+1, len(lines))))
	}
	return sb.String()
}

// truncate cuts s to max runes; Hangul is multi-byte.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

func (m *ResultsModel) exportCSV() {
	path := fmt.Sprintf("templestay_%s.csv", time.Now().Format("20060102_150405"))
	data := m.filtered
	if len(data) == 0 {
		data = m.venues
	}

	f, err := os.Create(path)
	if err != nil {
		m.status = fmt.Sprintf("Export error: %v", err)
		return
	}
	defer f.Close()

	if err := storage.WriteCSV(f, data); err != nil {
		m.status = fmt.Sprintf("Export error: %v", err)
		return
	}
	m.status = fmt.Sprintf("Exported %d rows to %s", len(data), path)
}
