package cli

import "github.com/charmbracelet/lipgloss"

// Adaptive colors matching the UI palette.
var (
	colorWhite = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim   = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorCyan  = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Semantic styles for CLI output.
var (
	styleBrand   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleVersion = lipgloss.NewStyle().Foreground(colorGreen)
	styleLabel   = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleHint    = lipgloss.NewStyle().Foreground(colorDim)
)
