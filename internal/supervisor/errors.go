package supervisor

import (
	"errors"
	"fmt"
)

// ErrExitedDuringStartup is returned when a child exits before it answers
// its first Ping.
var ErrExitedDuringStartup = errors.New("child exited during startup")

// SpawnError is returned when a child executable cannot be started.
type SpawnError struct {
	Role Role
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s process %s: %v", e.Role, e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// PortInUseError is returned by Start when something already accepts on
// the role's control port before the child is spawned.
type PortInUseError struct {
	Role Role
	Port int
}

func (e *PortInUseError) Error() string {
	return fmt.Sprintf("%s control port %d is already in use", e.Role, e.Port)
}
