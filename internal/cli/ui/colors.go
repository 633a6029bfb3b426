// Package ui provides styling and output helpers for the CLI. Everything
// here writes to the terminal the user reads, never to the relayed streams.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	// ErrorStyle is the style for error messages
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	// SuccessStyle is the style for success messages
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))

	// InfoStyle is the style for informational messages
	InfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0099FF"))

	// WarningStyle is the style for warning messages
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))

	// DimStyle is the style for dimmed text
	DimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	// BoldStyle is the style for bold text
	BoldStyle = lipgloss.NewStyle().Bold(true)

	SuccessIcon = "✅"
	ErrorIcon   = "❌"
	InfoIcon    = "ⓘ"
	WarningIcon = "⚠️"
	RelayIcon   = "🔌"
)

// stateStyles colours relay states in the status view.
var stateStyles = map[string]lipgloss.Style{
	"starting":  DimStyle,
	"buffering": WarningStyle,
	"flowing":   SuccessStyle,
	"exited":    InfoStyle,
}

// StateStyle returns the style for a relay state.
func StateStyle(state string) lipgloss.Style {
	if s, ok := stateStyles[state]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

// directionStyles colours transcript directions.
var directionStyles = map[string]lipgloss.Style{
	"IN":  InfoStyle,
	"OUT": SuccessStyle,
	"ERR": ErrorStyle,
	"SYS": DimStyle,
}
