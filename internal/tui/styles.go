package tui

import "github.com/charmbracelet/lipgloss"

// Color palette, matching the lime green accent used across agentmemdb's
// other terminal output.
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
)

// Styles holds the styles used by the episode browser.
type Styles struct {
	Header   lipgloss.Style
	Selected lipgloss.Style
	Dim      lipgloss.Style
	Reward   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
	Border   lipgloss.Style
}

// DefaultStyles returns the colored styles used in a TTY.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)).Background(lipgloss.Color(ColorDarkGray)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Reward:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Border:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(ColorDarkGray)),
	}
}

// NoColorStyles returns unstyled components for plain output or non-TTY.
func NoColorStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle(),
		Selected: lipgloss.NewStyle().Reverse(true),
		Dim:      lipgloss.NewStyle(),
		Reward:   lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle(),
		Help:     lipgloss.NewStyle(),
		Border:   lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles for the given color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
