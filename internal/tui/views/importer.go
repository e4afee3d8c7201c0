package views

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/templestay/internal/engine/geo"
	"github.com/rendis/templestay/internal/engine/ingest"
	"github.com/rendis/templestay/internal/engine/storage"
	"github.com/rendis/templestay/internal/tui/styles"
)

// importState holds data shared between the import goroutine and the TUI.
// Lives behind a pointer so it survives bubbletea's value copies.
type importState struct {
	mu     sync.Mutex
	stats  *ingest.Stats
	cancel context.CancelFunc
}

func (s *importState) getCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel
}

func (s *importState) getStats() *ingest.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ImporterModel runs one CSV import and shows its progress.
type ImporterModel struct {
	env         Env
	path        string
	progress    progress.Model
	startTime   time.Time
	done        bool
	confirmQuit bool
	err         error
	width       int
	shared      *importState
}

type importTickMsg time.Time

type importCompleteMsg struct {
	Err error
}

// ImportDoneMsg tells the app the store changed.
type ImportDoneMsg struct {
	Stored int64
}

func NewImporterModel(env Env, path string) ImporterModel {
	return ImporterModel{
		env:       env,
		path:      path,
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		startTime: time.Now(),
		shared:    &importState{},
	}
}

func (m ImporterModel) Init() tea.Cmd {
	return tea.Batch(m.startImport(), importTickCmd())
}

func importTickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return importTickMsg(t)
	})
}

func (m ImporterModel) startImport() tea.Cmd {
	shared := m.shared
	env := m.env
	path := m.path

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importCompleteMsg{Err: err}
		}
		venues, err := storage.ReadCSV(f)
		f.Close()
		if err != nil {
			return importCompleteMsg{Err: err}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stats := &ingest.Stats{Total: len(venues)}

		shared.mu.Lock()
		shared.stats = stats
		shared.cancel = cancel
		shared.mu.Unlock()

		_, err = ingest.Run(ctx, venues, env.Store, ingest.Options{
			Geocoder: env.Geocoder,
			Area:     geo.ServiceArea,
			Stats:    stats,
		}, env.Logger)
		return importCompleteMsg{Err: err}
	}
}

func (m ImporterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if cancel := m.shared.getCancel(); cancel != nil {
				cancel()
			}
			return m, tea.Quit
		case "esc", "enter":
			if m.done {
				return m, m.finish()
			}
			if msg.String() == "enter" {
				m.confirmQuit = false
				return m, nil
			}
			if m.confirmQuit {
				if cancel := m.shared.getCancel(); cancel != nil {
					cancel()
				}
				return m, m.finish()
			}
			m.confirmQuit = true
			return m, nil
		}
		m.confirmQuit = false
	case importTickMsg:
		if m.done {
			return m, nil
		}
		return m, importTickCmd()
	case importCompleteMsg:
		m.done = true
		m.err = msg.Err
		return m, nil
	}

	pModel, cmd := m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func (m ImporterModel) finish() tea.Cmd {
	var stored int64
	if stats := m.shared.getStats(); stats != nil {
		stored = stats.Stored.Load()
	}
	return tea.Batch(
		func() tea.Msg { return ImportDoneMsg{Stored: stored} },
		func() tea.Msg { return NavigateToHome{} },
	)
}

func (m ImporterModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Importing %s", filepath.Base(m.path))))
	b.WriteString("\n\n")

	statsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(34).
		Render(m.renderStats())
	b.WriteString(statsBox)
	b.WriteString("\n\n")

	stats := m.shared.getStats()
	var pct float64
	if stats != nil && stats.Total > 0 {
		pct = float64(stats.Processed.Load()) / float64(stats.Total)
	}
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteString("\n\n")

	switch {
	case m.done:
		if m.err != nil && !errors.Is(m.err, context.Canceled) {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			var stored int64
			if stats != nil {
				stored = stats.Stored.Load()
			}
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
				Render(fmt.Sprintf("Done! %d venues stored", stored)))
		}
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("enter back to menu"))
	case m.confirmQuit:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the import"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	default:
		b.WriteString(styles.StatusBar.Render("esc cancel • ctrl+c quit"))
	}
	return b.String()
}

func (m ImporterModel) renderStats() string {
	var sb strings.Builder
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	var total, processed, stored, geocoded, unlocated, outside, errCount int64
	if stats := m.shared.getStats(); stats != nil {
		total = int64(stats.Total)
		processed = stats.Processed.Load()
		stored = stats.Stored.Load()
		geocoded = stats.Geocoded.Load()
		unlocated = stats.Unlocated.Load()
		outside = stats.OutOfArea.Load()
		errCount = stats.Errors.Load()
	}

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(14)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)
	row := func(label, value string, style lipgloss.Style) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(style.Render(value))
		sb.WriteString("\n")
	}

	row("Venues:", fmt.Sprintf("%d/%d", processed, total), statVal)
	row("Stored:", fmt.Sprint(stored), statVal)
	row("Geocoded:", fmt.Sprint(geocoded), statVal)
	if unlocated > 0 {
		row("No location:", fmt.Sprint(unlocated), lipgloss.NewStyle().Foreground(styles.Warning).Bold(true))
	}
	if outside > 0 {
		row("Out of area:", fmt.Sprint(outside), lipgloss.NewStyle().Foreground(styles.Warning).Bold(true))
	}
	errStyle := statVal
	if errCount > 0 {
		errStyle = lipgloss.NewStyle().Foreground(styles.Error).Bold(true)
	}
	row("Errors:", fmt.Sprint(errCount), errStyle)
	row("Elapsed:", elapsed.String(), statVal)
	return sb.String()
}
