package ipc

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	// DialTimeout bounds connection establishment.
	DialTimeout = 2 * time.Second

	// ReadTimeout bounds the wait for a reply after a command is sent.
	ReadTimeout = 2 * time.Second
)

// Client sends commands to one control endpoint. Each call uses a fresh
// connection.
type Client struct {
	addr        string
	dialTimeout time.Duration
	readTimeout time.Duration
	logger      *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithReadTimeout overrides the reply wait.
func WithReadTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithDialTimeout overrides the connect timeout.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// WithClientLogger sets the logger used for reply diagnostics.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient returns a client for the loopback endpoint on port.
func NewClient(port int, opts ...ClientOption) *Client {
	c := &Client{
		addr:        net.JoinHostPort(LoopbackHost, strconv.Itoa(port)),
		dialTimeout: DialTimeout,
		readTimeout: ReadTimeout,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Addr returns the target address.
func (c *Client) Addr() string {
	return c.addr
}

// Send delivers cmd without waiting for a reply.
func (c *Client) Send(ctx context.Context, cmd Command) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return c.write(conn, cmd)
}

// SendWithResponse delivers cmd and waits for at most one reply. A peer
// that closes without replying, a read timeout or an undecodable reply
// all yield (nil, nil).
func (c *Client) SendWithResponse(ctx context.Context, cmd Command) (*Command, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := c.write(conn, cmd); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.readTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	reply, err := ReadCommand(conn)
	if err != nil {
		c.logger.Debug("no reply", zap.String("addr", c.addr), zap.Stringer("command", cmd), zap.Error(err))
		return nil, nil
	}
	return &reply, nil
}

// Ping asks the peer for its status.
func (c *Client) Ping(ctx context.Context) (*Command, error) {
	return c.SendWithResponse(ctx, Ping)
}

// Reachable reports whether anything accepts connections on the endpoint.
func (c *Client) Reachable(ctx context.Context) bool {
	conn, err := c.dial(ctx)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, &ConnectError{Addr: c.addr, Err: err}
	}
	return conn, nil
}

func (c *Client) write(conn net.Conn, cmd Command) error {
	if err := conn.SetWriteDeadline(time.Now().Add(c.dialTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := WriteCommand(conn, cmd); err != nil {
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}
	return nil
}
