// Package tray implements the system tray icon and menu for the supervisor.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/bongapp/bong/internal/eventloop"
	"github.com/bongapp/bong/internal/tray/icon"
)

// Tooltip is shown when hovering the tray icon.
const Tooltip = "Bong App"

var (
	onStart func()
	onExit  func()

	statusItem *systray.MenuItem
	openItem   *systray.MenuItem
	quitItem   *systray.MenuItem

	events   = make(chan eventloop.Event, 8)
	quitOnce sync.Once
)

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStartFn is called when the tray is ready (start the event loop here).
// onExitFn is called when the tray exits (cleanup here).
func Run(onStartFn, onExitFn func()) {
	onStart = onStartFn
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Events returns the channel menu activations are delivered on.
func Events() <-chan eventloop.Event {
	return events
}

// Quit signals the tray to exit.
func Quit() {
	quitOnce.Do(systray.Quit)
}

func onReady() {
	systray.SetIcon(icon.Load())
	systray.SetTooltip(Tooltip)

	statusItem = systray.AddMenuItem(formatStatus(false, false), "")
	statusItem.Disable()

	systray.AddSeparator()

	openItem = systray.AddMenuItem("Open", "Open the Bong window")
	quitItem = systray.AddMenuItem("Exit", "Stop all Bong processes and exit")

	if onStart != nil {
		onStart()
	}

	go handleClicks()
}

func onQuit() {
	if onExit != nil {
		onExit()
	}
}

func handleClicks() {
	for {
		select {
		case <-openItem.ClickedCh:
			events <- eventloop.Event{Kind: eventloop.EventOpen}
		case <-quitItem.ClickedCh:
			events <- eventloop.Event{Kind: eventloop.EventQuit}
			return
		}
	}
}

// UpdateStatus refreshes the status line of the menu.
func UpdateStatus(background, ui bool) {
	if statusItem == nil {
		return
	}
	statusItem.SetTitle(formatStatus(background, ui))
	systray.SetTooltip(fmt.Sprintf("%s (%s)", Tooltip, statusWord(background)))
}

func formatStatus(background, ui bool) string {
	return fmt.Sprintf("Background: %s  UI: %s", statusWord(background), statusWord(ui))
}

func statusWord(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}

// Systray exposes the process-wide tray as a value.
type Systray struct{}

func (Systray) Run(onStartFn, onExitFn func())   { Run(onStartFn, onExitFn) }
func (Systray) Quit()                            { Quit() }
func (Systray) Events() <-chan eventloop.Event   { return Events() }
func (Systray) UpdateStatus(background, ui bool) { UpdateStatus(background, ui) }
