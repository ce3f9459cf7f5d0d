package ui

import (
	"context"
	"sync"
)

// Window is the toolkit surface of the UI process.
type Window interface {
	// Run blocks until the window is closed or ctx ends.
	Run(ctx context.Context) error
	// Close asks the window to close. Safe from any goroutine.
	Close()
}

// HeadlessWindow is used when no terminal is attached; it shows nothing
// and waits to be closed.
type HeadlessWindow struct {
	once   sync.Once
	closed chan struct{}
}

// NewHeadlessWindow creates an open headless window.
func NewHeadlessWindow() *HeadlessWindow {
	return &HeadlessWindow{closed: make(chan struct{})}
}

// Run blocks until Close is called or ctx ends.
func (w *HeadlessWindow) Run(ctx context.Context) error {
	select {
	case <-w.closed:
	case <-ctx.Done():
	}
	return nil
}

// Close releases Run.
func (w *HeadlessWindow) Close() {
	w.once.Do(func() { close(w.closed) })
}
