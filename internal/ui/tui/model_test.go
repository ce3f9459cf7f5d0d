package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func plain(m Model) string {
	return ansi.Strip(m.View())
}

func TestInitChecksStatus(t *testing.T) {
	m := NewModel(func(context.Context) Status { return StatusRunning }, time.Second)

	cmd := m.Init()
	require.NotNil(t, cmd)
	assert.Equal(t, StatusMsg{Status: StatusRunning}, cmd())
}

func TestInitWithoutStatusFunc(t *testing.T) {
	m := NewModel(nil, 0)
	assert.Nil(t, m.Init())
	assert.Equal(t, 2*time.Second, m.pollInterval)
}

func TestStatusMsgUpdatesBadgeAndSchedulesPoll(t *testing.T) {
	m := NewModel(func(context.Context) Status { return StatusStopped }, time.Millisecond)
	assert.Contains(t, plain(m), "Background: Checking")

	m, cmd := update(t, m, StatusMsg{Status: StatusError})
	assert.Contains(t, plain(m), "Background: Error")
	require.NotNil(t, cmd)
	assert.Equal(t, TickMsg{}, cmd())

	m, cmd = update(t, m, TickMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, StatusMsg{Status: StatusStopped}, cmd())
}

func TestRefreshDoesNotStartExtraPollChains(t *testing.T) {
	m := NewModel(func(context.Context) Status { return StatusRunning }, time.Millisecond)

	pending := []tea.Cmd{m.Init()}
	for range 3 {
		var cmd tea.Cmd
		m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
		require.NotNil(t, cmd)
		pending = append(pending, cmd)
	}

	// Each round runs every pending command and feeds its message back,
	// the way the bubbletea runtime would.
	for round := range 6 {
		var next []tea.Cmd
		ticks := 0
		for _, cmd := range pending {
			msg := cmd()
			if _, ok := msg.(TickMsg); ok {
				ticks++
			}
			var follow tea.Cmd
			m, follow = update(t, m, msg)
			if follow != nil {
				next = append(next, follow)
			}
		}
		if round%2 == 1 {
			assert.Equal(t, 1, ticks, "round %d", round)
		}
		assert.Len(t, next, 1, "round %d", round)
		pending = next
	}
	assert.Equal(t, StatusRunning, m.status)
}

func TestRefreshKeyReportsManualStatus(t *testing.T) {
	m := NewModel(func(context.Context) Status { return StatusStopped }, time.Second)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, StatusMsg{Status: StatusStopped, Manual: true}, msg)

	m, cmd = update(t, m, msg)
	assert.Nil(t, cmd)
	assert.Contains(t, plain(m), "Background: Stopped")
}

func TestTabSwitchesViews(t *testing.T) {
	m := NewModel(nil, time.Second)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Contains(t, plain(m), "No active downloads")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, viewSearch, m.view)
	assert.True(t, m.search.Focused())
	assert.Contains(t, plain(m), "No search results yet")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, viewDownloads, m.view)
	assert.False(t, m.search.Focused())
}

func TestSearchSubmitAndClear(t *testing.T) {
	m := NewModel(nil, time.Second)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	for _, r := range "ubuntu iso" {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "ubuntu iso", m.lastQuery)
	assert.Contains(t, plain(m), `No results for "ubuntu iso"`)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.lastQuery)
	assert.Empty(t, m.search.Value())
}

func TestQuitKey(t *testing.T) {
	m := NewModel(nil, time.Second)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlQ})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestViewFitsWidth(t *testing.T) {
	m := NewModel(nil, time.Second)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 20, Height: 10})
	for _, line := range strings.Split(m.View(), "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 20, "%q", ansi.Strip(line))
	}
}

func TestWindowCloseBeforeRun(t *testing.T) {
	w := NewWindow(nil, time.Second)
	w.Close()

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
