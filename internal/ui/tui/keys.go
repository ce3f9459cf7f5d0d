package tui

import "github.com/charmbracelet/bubbles/key"

// GlobalKeys are always active.
type GlobalKeys struct {
	Quit    key.Binding
	Tab     key.Binding
	Refresh key.Binding
}

var globalKeys = GlobalKeys{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+q", "ctrl+c"),
		key.WithHelp("Ctrl+q", "quit"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("Tab", "switch view"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("Ctrl+r", "refresh status"),
	),
}

// SearchKeys are active on the search view.
type SearchKeys struct {
	Submit key.Binding
	Clear  key.Binding
}

var searchKeys = SearchKeys{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "search"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "clear"),
	),
}
