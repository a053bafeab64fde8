package output

import "github.com/charmbracelet/lipgloss"

// Color palette. A single blue accent with grayscale support colors keeps
// search output readable next to other terminal noise.
const (
	ColorBlue     = "75"  // Primary accent
	ColorBlueDim  = "67"  // Paths, secondary accent
	ColorGray     = "245" // Labels, secondary text
	ColorDarkGray = "238" // Separators, low-priority text
	ColorGreen    = "114" // Success
	ColorYellow   = "220" // Warnings
	ColorRed      = "196" // Errors
)

// Styles holds the render styles for CLI output.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Path    lipgloss.Style
	Heading lipgloss.Style
	Score   lipgloss.Style
}

// DefaultStyles returns styled components for terminal output.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorBlue)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Path:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBlueDim)),
		Heading: lipgloss.NewStyle().Bold(true),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Path:    lipgloss.NewStyle(),
		Heading: lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
