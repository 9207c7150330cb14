package tui

import "github.com/charmbracelet/lipgloss"

// Shared palette. All views draw from these so the bucket colors stay
// consistent between the live view and the final summary.
var (
	ColorHeader   = lipgloss.Color("39")  // blue
	ColorLabel    = lipgloss.Color("245") // gray
	ColorValue    = lipgloss.Color("252") // near-white
	ColorOK       = lipgloss.Color("42")  // green
	ColorWarning  = lipgloss.Color("214") // orange
	ColorCritical = lipgloss.Color("196") // red
	ColorMuted    = lipgloss.Color("241")
	ColorBorder   = lipgloss.Color("240")
	ColorSpinner  = lipgloss.Color("205")
)

// Shared styles.
//
//nolint:gochecknoglobals // Lipgloss styles are package-level by convention.
var (
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorHeader)
	LabelStyle    = lipgloss.NewStyle().Foreground(ColorLabel)
	ValueStyle    = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	SubtleStyle   = lipgloss.NewStyle().Foreground(ColorMuted)
	OKStyle       = lipgloss.NewStyle().Foreground(ColorOK)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	CriticalStyle = lipgloss.NewStyle().Foreground(ColorCritical)
	SpinnerStyle  = lipgloss.NewStyle().Foreground(ColorSpinner)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)

// Bucket markers used in item lines and counters.
const (
	IconAccepted = "✓"
	IconWarning  = "!"
	IconBlocked  = "✗"
)

// Key strings handled by the upload model.
const (
	keyQuit  = "q"
	keyCtrlC = "ctrl+c"
)

// Default dimensions before the first WindowSizeMsg arrives.
const (
	defaultWidth  = 80
	defaultHeight = 24
	borderPadding = 2
)
