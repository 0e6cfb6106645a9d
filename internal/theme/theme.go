package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps a bordered content panel.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// SelectedRowStyle highlights the focused row.
var SelectedRowStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// TableHeaderStyle is used for table column headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Padding(0, 1)

// TableCellStyle is used for table cells.
var TableCellStyle = lipgloss.NewStyle().Padding(0, 1)

// SeverityStyle colors an exception severity.
func SeverityStyle(severity string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch severity {
	case "urgent":
		return base.Foreground(ColorRed)
	case "warning":
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGray)
	}
}

// RunStateStyle colors a scheduler run state.
func RunStateStyle(state string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch state {
	case "running":
		return base.Foreground(ColorBlue)
	case "error":
		return base.Foreground(ColorRed)
	case "idle":
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}
