package tui

import "context"

// Status is the background process state shown in the header.
type Status int

const (
	StatusUnknown Status = iota
	StatusRunning
	StatusStopped
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusStopped:
		return "Stopped"
	case StatusError:
		return "Error"
	default:
		return "Checking"
	}
}

// StatusFunc reports the current background status. It must honor ctx.
type StatusFunc func(ctx context.Context) Status
