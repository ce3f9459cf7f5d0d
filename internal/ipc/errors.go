package ipc

import (
	"errors"
	"fmt"
)

// BindError is returned when the control endpoint cannot be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind control channel on %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ConnectError is returned when no peer accepts on the target endpoint.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IsConnectError reports whether err means the peer is not reachable.
func IsConnectError(err error) bool {
	var ce *ConnectError
	return errors.As(err, &ce)
}
