package styles

import "github.com/charmbracelet/lipgloss"

// Palette borrows from dancheong, the painted eaves of temple halls.
var (
	Primary   = lipgloss.Color("#B45309") // ochre
	Secondary = lipgloss.Color("#0E7490") // teal
	Success   = lipgloss.Color("#16A34A")
	Warning   = lipgloss.Color("#F59E0B") // lantern
	Error     = lipgloss.Color("#DC2626")
	Muted     = lipgloss.Color("#6B7280")
	Text      = lipgloss.Color("#E5E7EB")
	User      = lipgloss.Color("#3B82F6")
)

// Screen chrome.
var (
	Title     = lipgloss.NewStyle().Bold(true).Foreground(Primary).MarginBottom(1)
	StatusBar = lipgloss.NewStyle().Foreground(Muted).MarginTop(1)
	Border    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(1, 2)
)

// Lists and forms.
var (
	ActiveItem   = lipgloss.NewStyle().Foreground(Primary).Bold(true)
	InactiveItem = lipgloss.NewStyle().Foreground(Muted)
	Label        = lipgloss.NewStyle().Foreground(Muted).Width(14)
	Distance     = lipgloss.NewStyle().Foreground(Secondary).Bold(true)
)

// Feedback. Notice covers non-blocking warnings such as a fallback location.
var (
	ErrorText = lipgloss.NewStyle().Foreground(Error).Bold(true)
	Notice    = lipgloss.NewStyle().Foreground(Warning).Italic(true)
)
