package views

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/rendis/templestay/internal/engine/storage"
	"github.com/rendis/templestay/internal/tui/styles"
)

const pickerRows = 15

type pickerEntry struct {
	name string
	dir  bool
	size int64
}

// FilePickerModel browses directories for a venue CSV to import.
type FilePickerModel struct {
	dir     string
	entries []pickerEntry
	cursor  int
	err     error
	invalid string // why the last chosen file was refused
}

func NewFilePickerModel() FilePickerModel {
	cwd, _ := os.Getwd()
	m := FilePickerModel{dir: cwd}
	m.loadDir()
	return m
}

func (m *FilePickerModel) loadDir() {
	m.entries = nil
	m.cursor = 0
	m.invalid = ""

	dirEntries, err := os.ReadDir(m.dir)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	for _, e := range dirEntries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			m.entries = append(m.entries, pickerEntry{name: name, dir: true})
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		m.entries = append(m.entries, pickerEntry{name: name, size: size})
	}
}

func (m FilePickerModel) Init() tea.Cmd {
	return nil
}

func (m FilePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor >= len(m.entries) {
			return m, nil
		}
		entry := m.entries[m.cursor]
		fullPath := filepath.Join(m.dir, entry.name)
		if entry.dir {
			m.dir = fullPath
			m.loadDir()
			return m, nil
		}
		if err := checkCSV(fullPath); err != nil {
			m.invalid = fmt.Sprintf("%s: %v", entry.name, err)
			return m, nil
		}
		return m, func() tea.Msg { return StartImportMsg{Path: fullPath} }
	case "backspace":
		if parent := filepath.Dir(m.dir); parent != m.dir {
			m.dir = parent
			m.loadDir()
		}
	case "esc":
		return m, func() tea.Msg { return NavigateToHome{} }
	}
	return m, nil
}

func checkCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return storage.CheckCSVHeader(f)
}

func (m FilePickerModel) View() string {
	var b strings.Builder
	muted := lipgloss.NewStyle().Foreground(styles.Muted)

	b.WriteString(styles.Title.Render("Import Venues"))
	b.WriteString("\n")
	b.WriteString(muted.Render(m.dir))
	b.WriteString("\n")
	b.WriteString(muted.Italic(true).Render("needs kind and name columns; templestay export writes the full layout"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.StatusBar.Render("backspace parent dir • esc back"))
		return styles.Border.Render(b.String())
	}

	if len(m.entries) == 0 {
		b.WriteString(muted.Italic(true).Render("No .csv files or directories here"))
		b.WriteString("\n")
	}

	start := max(m.cursor-pickerRows+3, 0)
	end := min(start+pickerRows, len(m.entries))
	for i := start; i < end; i++ {
		e := m.entries[i]
		cursor, style := "  ", styles.InactiveItem
		if i == m.cursor {
			cursor, style = "> ", styles.ActiveItem
		}
		if e.dir {
			b.WriteString(fmt.Sprintf("%s📁 %s\n", cursor, style.Render(e.name+"/")))
			continue
		}
		b.WriteString(fmt.Sprintf("%s📄 %s %s\n", cursor, style.Render(e.name),
			muted.Render(humanize.Bytes(uint64(e.size)))))
	}

	if m.invalid != "" {
		b.WriteString("\n")
		b.WriteString(styles.ErrorText.Render(m.invalid))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("enter import • backspace parent dir • esc back"))

	return styles.Border.Render(b.String())
}
