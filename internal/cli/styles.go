package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// --- Color Palette (Premium / Dark Mode) ---
var (
	colorPrimary   = lipgloss.Color("#7D56F4") // Indigo/Purple
	colorSecondary = lipgloss.Color("#04B575") // Green
	colorError     = lipgloss.Color("#FF5F87") // Pink/Red
	colorWarning   = lipgloss.Color("#FFAF00") // Gold
	colorSubtle    = lipgloss.Color("#767676") // Gray
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	valueStyle  = lipgloss.NewStyle().Foreground(colorSecondary).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(colorError)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	subtleStyle = lipgloss.NewStyle().Foreground(colorSubtle)
)
