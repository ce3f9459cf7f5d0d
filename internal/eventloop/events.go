// Package eventloop drives the supervisor from tray menu events.
package eventloop

import "context"

// EventKind identifies a tray menu action.
type EventKind int

const (
	EventOpen EventKind = iota + 1
	EventQuit
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Event is a single menu activation.
type Event struct {
	Kind EventKind
}

// Controller is the lifecycle surface the event loop drives.
type Controller interface {
	StartUI(ctx context.Context) error
	StopAll(ctx context.Context) error
}
