package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// LoopbackHost is the only interface the control channel binds to.
	LoopbackHost = "127.0.0.1"

	// AcceptPollInterval bounds how long Serve blocks in Accept before
	// re-checking whether it was stopped.
	AcceptPollInterval = 100 * time.Millisecond

	// ConnReadTimeout bounds the wait for a request on an accepted connection.
	ConnReadTimeout = 2 * time.Second
)

// Handler processes one control command and returns an optional reply.
// A nil reply or a non-nil error closes the connection without replying.
type Handler interface {
	Handle(ctx context.Context, cmd Command) (*Command, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, cmd Command) (*Command, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (*Command, error) {
	return f(ctx, cmd)
}

// Reply is a small helper for handlers returning a reply value.
func Reply(c Command) (*Command, error) {
	return &c, nil
}

// Server is a loopback control-channel listener. Connections are served
// one at a time in accept order.
type Server struct {
	listener *net.TCPListener
	logger   *zap.Logger
	running  atomic.Bool
	done     chan struct{}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger used for connection diagnostics.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// Listen binds the control endpoint on the loopback interface. Port 0
// picks a free port, see Port.
func Listen(port int, opts ...ServerOption) (*Server, error) {
	addr := net.JoinHostPort(LoopbackHost, strconv.Itoa(port))
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}
	lis, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	s := &Server{
		listener: lis,
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.running.Store(true)
	return s, nil
}

// Port returns the bound TCP port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Stop asks Serve to return. The connection currently being handled is
// completed first; Serve returns within one accept poll interval.
func (s *Server) Stop() {
	s.running.Store(false)
}

// Done is closed once Serve has returned and the listener is closed.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Serve accepts and handles connections until Stop is called or ctx ends.
func (s *Server) Serve(ctx context.Context, h Handler) error {
	defer close(s.done)
	defer s.listener.Close()

	s.logger.Debug("control channel listening", zap.String("addr", s.Addr()))

	for s.running.Load() && ctx.Err() == nil {
		if err := s.listener.SetDeadline(time.Now().Add(AcceptPollInterval)); err != nil {
			return fmt.Errorf("failed to set accept deadline: %w", err)
		}

		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", zap.Error(err))
			time.Sleep(AcceptPollInterval)
			continue
		}

		s.serveConn(ctx, conn, h)
	}

	s.logger.Debug("control channel stopped", zap.String("addr", s.Addr()))
	return nil
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn, h Handler) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(ConnReadTimeout)); err != nil {
		s.logger.Warn("failed to set read deadline", zap.Error(err))
		return
	}

	cmd, err := ReadCommand(conn)
	if err != nil {
		s.logger.Warn("dropping connection", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
		return
	}
	s.logger.Debug("received command", zap.Stringer("command", cmd))

	reply, err := s.handle(ctx, h, cmd)
	if err != nil {
		s.logger.Warn("handler failed", zap.Stringer("command", cmd), zap.Error(err))
		return
	}
	if reply == nil {
		return
	}

	if err := conn.SetWriteDeadline(time.Now().Add(ConnReadTimeout)); err != nil {
		s.logger.Warn("failed to set write deadline", zap.Error(err))
		return
	}
	if err := WriteCommand(conn, *reply); err != nil {
		s.logger.Warn("failed to write reply", zap.Stringer("reply", *reply), zap.Error(err))
	}
}

// handle shields the accept loop from handler panics.
func (s *Server) handle(ctx context.Context, h Handler, cmd Command) (reply *Command, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, cmd)
}

// Close stops the server and releases the listener immediately. It is
// safe to call whether or not Serve is running.
func (s *Server) Close() error {
	s.Stop()
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
