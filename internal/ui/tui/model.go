package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// View modes.
const (
	viewDownloads = 0
	viewSearch    = 1
)

var viewNames = []string{"Downloads", "Search"}

// statusCheckTimeout bounds a single status check.
const statusCheckTimeout = 2 * time.Second

// Model is the root bubbletea model of the UI window.
type Model struct {
	width, height int

	view   int
	status Status

	statusFn     StatusFunc
	pollInterval time.Duration

	search    textinput.Model
	lastQuery string
}

// NewModel creates the window model. statusFn may be nil, in which case
// the status stays unknown.
func NewModel(statusFn StatusFunc, pollInterval time.Duration) Model {
	ti := textinput.New()
	ti.Placeholder = "Enter search query..."
	ti.CharLimit = 256
	ti.Prompt = "> "

	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return Model{
		view:         viewDownloads,
		status:       StatusUnknown,
		statusFn:     statusFn,
		pollInterval: pollInterval,
		search:       ti,
	}
}

// Init starts the first status check.
func (m Model) Init() tea.Cmd {
	return m.checkStatus(false)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.search.Width = max(msg.Width-12, 10)
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		if msg.Manual {
			return m, nil
		}
		return m, tea.Tick(m.pollInterval, func(time.Time) tea.Msg { return TickMsg{} })

	case TickMsg:
		return m, m.checkStatus(false)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.view == viewSearch {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, globalKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, globalKeys.Tab):
		return m.switchView(), nil
	case key.Matches(msg, globalKeys.Refresh):
		return m, m.checkStatus(true)
	}

	if m.view != viewSearch {
		return m, nil
	}

	switch {
	case key.Matches(msg, searchKeys.Submit):
		m.lastQuery = strings.TrimSpace(m.search.Value())
		return m, nil
	case key.Matches(msg, searchKeys.Clear):
		m.search.SetValue("")
		m.lastQuery = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) switchView() Model {
	if m.view == viewDownloads {
		m.view = viewSearch
		m.search.Focus()
	} else {
		m.view = viewDownloads
		m.search.Blur()
	}
	return m
}

// checkStatus queries the background. Only non-manual results re-arm the
// poll tick, so at most one poll chain is ever live.
func (m Model) checkStatus(manual bool) tea.Cmd {
	fn := m.statusFn
	if fn == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), statusCheckTimeout)
		defer cancel()
		return StatusMsg{Status: fn(ctx), Manual: manual}
	}
}

// View renders the window.
func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	header := renderHeader(m.view, m.status, width)
	footer := renderStatusBar(m.view, width)

	var body string
	switch m.view {
	case viewSearch:
		body = renderSearch(m.search.View(), m.lastQuery)
	default:
		body = renderDownloads()
	}
	body = truncateLines(bodyStyle.Render(body), width)

	if m.height > 0 {
		bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
		if bodyHeight > 0 {
			body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// truncateLines cuts every line to the window width.
func truncateLines(s string, width int) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "…")
	}
	return strings.Join(lines, "\n")
}
