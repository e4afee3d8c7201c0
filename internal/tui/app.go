package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/templestay/internal/tui/views"
)

type viewID int

const (
	viewHome viewID = iota
	viewSearch
	viewResults
	viewNearby
	viewFilePicker
	viewImporter
	viewRecent
)

// Counter reports how many venues the store holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// App is the root bubbletea model.
type App struct {
	env         views.Env
	counter     Counter
	recentPath  string
	currentView viewID
	width       int
	height      int
	venues      int
	home        views.HomeModel
	search      views.SearchModel
	results     views.ResultsModel
	nearby      views.NearbyModel
	filePicker  views.FilePickerModel
	importer    views.ImporterModel
	recent      views.RecentModel
}

type venueCountMsg int

func NewApp(env views.Env, counter Counter, recentPath string, venues int) App {
	return App{
		env:         env,
		counter:     counter,
		recentPath:  recentPath,
		currentView: viewHome,
		venues:      venues,
		home:        views.NewHomeModel(venues),
	}
}

func (a App) Init() tea.Cmd {
	return a.home.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && a.currentView != viewImporter {
			a.leaveNearby()
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case views.NavigateToHome:
		a.leaveNearby()
		a.currentView = viewHome
		a.home = views.NewHomeModel(a.venues)
		return a, nil
	case views.NavigateToSearch:
		a.currentView = viewSearch
		a.search = views.NewSearchModel(a.env.Kind, a.env.Sort)
		return a, a.search.Init()
	case views.StartSearchMsg:
		if err := SaveRecent(a.recentPath, msg, time.Now()); err != nil {
			a.env.Logger.Warn().Err(err).Str("path", a.recentPath).Msg("saving recent search")
		}
		a.currentView = viewResults
		a.results = views.NewResultsModel(a.env, msg)
		return a, tea.Batch(a.results.Init(), a.sizeCmd())
	case views.NavigateToNearby:
		a.leaveNearby()
		a.currentView = viewNearby
		a.nearby = views.NewNearbyModel(a.env, msg.Center)
		return a, tea.Batch(a.nearby.Init(), a.sizeCmd())
	case views.NavigateToImport:
		a.currentView = viewFilePicker
		a.filePicker = views.NewFilePickerModel()
		return a, a.filePicker.Init()
	case views.StartImportMsg:
		a.currentView = viewImporter
		a.importer = views.NewImporterModel(a.env, msg.Path)
		return a, tea.Batch(a.importer.Init(), a.sizeCmd())
	case views.ImportDoneMsg:
		return a, a.countCmd()
	case venueCountMsg:
		a.venues = int(msg)
		a.home = views.NewHomeModel(a.venues)
		return a, nil
	case views.NavigateToRecent:
		a.currentView = viewRecent
		entries, err := LoadRecent(a.recentPath)
		if err != nil {
			a.env.Logger.Warn().Err(err).Str("path", a.recentPath).Msg("loading recent searches")
		}
		a.recent = views.NewRecentModel(entries)
		return a, a.recent.Init()
	}

	var cmd tea.Cmd
	var m tea.Model
	switch a.currentView {
	case viewHome:
		m, cmd = a.home.Update(msg)
		a.home = m.(views.HomeModel)
	case viewSearch:
		m, cmd = a.search.Update(msg)
		a.search = m.(views.SearchModel)
	case viewResults:
		m, cmd = a.results.Update(msg)
		a.results = m.(views.ResultsModel)
	case viewNearby:
		m, cmd = a.nearby.Update(msg)
		a.nearby = m.(views.NearbyModel)
	case viewFilePicker:
		m, cmd = a.filePicker.Update(msg)
		a.filePicker = m.(views.FilePickerModel)
	case viewImporter:
		m, cmd = a.importer.Update(msg)
		a.importer = m.(views.ImporterModel)
	case viewRecent:
		m, cmd = a.recent.Update(msg)
		a.recent = m.(views.RecentModel)
	}

	return a, cmd
}

func (a *App) leaveNearby() {
	if a.currentView == viewNearby {
		a.nearby.Close()
	}
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewHome:
		content = a.home.View()
	case viewSearch:
		content = a.search.View()
	case viewResults:
		content = a.results.View()
	case viewNearby:
		content = a.nearby.View()
	case viewFilePicker:
		content = a.filePicker.View()
	case viewImporter:
		content = a.importer.View()
	case viewRecent:
		content = a.recent.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly created views get the current terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

func (a App) countCmd() tea.Cmd {
	counter, fallback := a.counter, a.venues
	if counter == nil {
		return nil
	}
	return func() tea.Msg {
		n, err := counter.Count(context.Background())
		if err != nil {
			return venueCountMsg(fallback)
		}
		return venueCountMsg(n)
	}
}

// Run starts the TUI.
func Run(env views.Env, counter Counter, recentPath string, venues int) error {
	p := tea.NewProgram(NewApp(env, counter, recentPath, venues), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
