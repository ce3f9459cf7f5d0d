package supervisor

import (
	"context"
	"os/exec"
	"sync"
	"time"
)

// Child is a handle to a spawned child process. done is closed once the
// process has been reaped.
type Child struct {
	role      Role
	cmd       *exec.Cmd
	startedAt time.Time

	done    chan struct{}
	mu      sync.RWMutex
	exitErr error
}

// startChild starts cmd and reaps it in the background. onExit runs after
// the process has been reaped.
func startChild(role Role, cmd *exec.Cmd, onExit func(*Child)) (*Child, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &Child{
		role:      role,
		cmd:       cmd,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		c.mu.Lock()
		c.exitErr = err
		c.mu.Unlock()
		close(c.done)
		if onExit != nil {
			onExit(c)
		}
	}()

	return c, nil
}

// Role returns the role the child was started for.
func (c *Child) Role() Role {
	return c.role
}

// PID returns the OS process id.
func (c *Child) PID() int {
	return c.cmd.Process.Pid
}

// StartedAt returns the spawn time.
func (c *Child) StartedAt() time.Time {
	return c.startedAt
}

// Alive reports whether the process has not exited yet. It never blocks.
func (c *Child) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed when the process has exited.
func (c *Child) Done() <-chan struct{} {
	return c.done
}

// ExitErr returns the wait error once the process has exited.
func (c *Child) ExitErr() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.exitErr
}

// Wait blocks until the process exits or ctx ends. It reports whether the
// process exited.
func (c *Child) Wait(ctx context.Context) bool {
	select {
	case <-c.done:
		return true
	case <-ctx.Done():
		return false
	}
}

// WaitTimeout is Wait bounded by d.
func (c *Child) WaitTimeout(ctx context.Context, d time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return c.Wait(ctx)
}

// Kill terminates the process immediately.
func (c *Child) Kill() error {
	if !c.Alive() {
		return nil
	}
	return c.cmd.Process.Kill()
}
