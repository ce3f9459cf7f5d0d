// Package tui implements the terminal window of the UI process.
package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// programRef is a shared reference to the tea.Program for goroutine sends.
// It's set after tea.NewProgram but before p.Run().
type programRef struct {
	mu     sync.Mutex
	p      *tea.Program
	closed bool
}

// Set stores p unless Quit was already requested, in which case it
// reports false.
func (r *programRef) Set(p *tea.Program) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.p = p
	return true
}

// Quit asks the running program to exit and marks the reference closed.
func (r *programRef) Quit() {
	r.mu.Lock()
	p := r.p
	r.closed = true
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

// Clear nils out the program reference, preventing post-exit sends.
func (r *programRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.p = nil
}

// Window runs the model as a full-screen terminal program.
type Window struct {
	ref          programRef
	statusFn     StatusFunc
	pollInterval time.Duration
	opts         []tea.ProgramOption
}

// NewWindow creates a window polling statusFn every pollInterval.
func NewWindow(statusFn StatusFunc, pollInterval time.Duration, opts ...tea.ProgramOption) *Window {
	return &Window{
		statusFn:     statusFn,
		pollInterval: pollInterval,
		opts:         opts,
	}
}

// Run blocks until the user quits, Close is called or ctx ends.
func (w *Window) Run(ctx context.Context) error {
	opts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, w.opts...)
	p := tea.NewProgram(NewModel(w.statusFn, w.pollInterval), opts...)

	if !w.ref.Set(p) {
		return nil
	}
	defer w.ref.Clear()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Close requests the window to exit. It is safe to call from any
// goroutine, before or during Run.
func (w *Window) Close() {
	w.ref.Quit()
}
