package tui

// StatusMsg carries the result of a background status check.
// Manual results come from a refresh key press and do not schedule a poll.
type StatusMsg struct {
	Status Status
	Manual bool
}

// TickMsg is a periodic tick for polling.
type TickMsg struct{}
