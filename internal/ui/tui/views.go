package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func renderHeader(view int, status Status, width int) string {
	name := lipgloss.NewStyle().Bold(true).Render("bong")
	tabs := renderTabs(viewNames, view)
	badge := renderStatusBadge(status)

	left := fmt.Sprintf(" %s  %s", name, tabs)
	right := fmt.Sprintf("%s ", badge)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return headerStyle.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func renderTabs(tabs []string, active int) string {
	var parts []string
	for i, tab := range tabs {
		if i == active {
			parts = append(parts, activeTabStyle.Render(tab))
		} else {
			parts = append(parts, inactiveTabStyle.Render(tab))
		}
	}
	return strings.Join(parts, tabSepStyle.Render(" | "))
}

func renderStatusBadge(status Status) string {
	label := "Background: " + status.String()
	switch status {
	case StatusRunning:
		return badgeRunningStyle.Render("● " + label)
	case StatusError:
		return badgeErrorStyle.Render("✕ " + label)
	default:
		return badgeStoppedStyle.Render("○ " + label)
	}
}

func renderDownloads() string {
	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		renderStat("Active", "0"),
		" ",
		renderStat("Completed", "0"),
		" ",
		renderStat("Speed", "0 KB/s"),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Downloads"),
		subtitleStyle.Render("Manage your active and completed downloads"),
		"",
		stats,
		"",
		emptyTitleStyle.Render("No active downloads"),
		subtitleStyle.Render("Add a download to get started"),
	)
}

func renderStat(label, value string) string {
	return statBoxStyle.Render(statLabelStyle.Render(label) + "\n" + statValueStyle.Render(value))
}

func renderSearch(input, lastQuery string) string {
	empty := lipgloss.JoinVertical(lipgloss.Left,
		emptyTitleStyle.Render("No search results yet"),
		subtitleStyle.Render("Enter a search term to get started"),
	)
	if lastQuery != "" {
		empty = lipgloss.JoinVertical(lipgloss.Left,
			emptyTitleStyle.Render(fmt.Sprintf("No results for %q", lastQuery)),
			subtitleStyle.Render("Try a different search term"),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Search"),
		subtitleStyle.Render("Search for torrents, videos, and other content"),
		"",
		input,
		"",
		empty,
	)
}

func renderStatusBar(view int, width int) string {
	hints := keyHint("Ctrl+q", "quit") + "  " + keyHint("Tab", "switch view") + "  " + keyHint("Ctrl+r", "refresh")
	if view == viewSearch {
		hints += "  " + keyHint("Enter", "search") + "  " + keyHint("Esc", "clear")
	}
	return statusBarStyle.Width(width).Render(" " + hints)
}

func keyHint(k, desc string) string {
	return keyStyle.Render(k) + " " + hintStyle.Render(desc)
}
