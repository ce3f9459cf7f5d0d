package tui

import "github.com/charmbracelet/lipgloss"

// Colors using AdaptiveColor for light/dark terminal support.
var (
	colorWhite = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim   = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed   = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorCyan  = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Layout styles.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Background(lipgloss.AdaptiveColor{Light: "235", Dark: "236"})

	bodyStyle = lipgloss.NewStyle().
			Padding(1, 2)
)

// Tab styles.
var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(colorWhite)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorDim)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

// Background status badge styles.
var (
	badgeRunningStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	badgeStoppedStyle = lipgloss.NewStyle().Foreground(colorDim)
	badgeErrorStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// View styles.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	statBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 2)

	statLabelStyle = lipgloss.NewStyle().Foreground(colorDim)
	statValueStyle = lipgloss.NewStyle().Bold(true)

	emptyTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
)

// Key hint styles.
var (
	keyStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	hintStyle = lipgloss.NewStyle().Foreground(colorDim)
)
