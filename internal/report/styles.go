package report

import "github.com/charmbracelet/lipgloss"

// Color constants matching the dark terminal theme
const (
	ColorBg     = "#0d1117"
	ColorBorder = "#30363d"
	ColorBlue   = "#58a6ff"
	ColorGreen  = "#3fb950"
	ColorRed    = "#f85149"
	ColorYellow = "#d29922"
	ColorGray   = "#8b949e"
	ColorText   = "#c9d1d9"
	ColorBright = "#f0f6fc"
)

// Styles holds the lipgloss styles used by the renderers.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Tag     lipgloss.Style
	Border  lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
}

// DefaultStyles creates the default style set
func DefaultStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBright)).
			MarginBottom(1),

		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Width(16),

		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)),

		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGray)).
			Italic(true),

		Tag: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorBlue)),

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorBorder)).
			Padding(0, 1),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(ColorBlue)).
			Padding(0, 1),

		Cell: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorText)).
			Padding(0, 1),

		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGreen)).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorYellow)).
			Bold(true),
	}
}

// CompatibilityStyle colors a compatibility percentage.
// Green for >=75, yellow for >=40, red below.
func CompatibilityStyle(pct int) lipgloss.Style {
	style := lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(lipgloss.Color(ColorBg))

	switch {
	case pct >= 75:
		return style.Background(lipgloss.Color(ColorGreen))
	case pct >= 40:
		return style.Background(lipgloss.Color(ColorYellow))
	default:
		return style.Background(lipgloss.Color(ColorRed))
	}
}
