// Package supervisor starts, pings and stops the background and UI child
// processes.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bongapp/bong/internal/ipc"
	"github.com/bongapp/bong/internal/models"
)

// Defaults for Config fields left zero.
const (
	DefaultReadyTimeout      = 5 * time.Second
	DefaultReadyPollInterval = 50 * time.Millisecond
	DefaultGraceWindow       = 500 * time.Millisecond
	DefaultClientTimeout     = 2 * time.Second
)

// CommandFunc builds the command used to spawn a child.
type CommandFunc func(path string, args ...string) *exec.Cmd

// Config configures a Supervisor.
type Config struct {
	// Dir holds the child executables. Empty means the directory of the
	// running executable.
	Dir string

	// Executables overrides the per-role executable names.
	Executables map[Role]string

	// Ports are the children's control ports.
	Ports map[Role]int

	// Args are passed to every child.
	Args []string

	ReadyTimeout      time.Duration
	ReadyPollInterval time.Duration
	GraceWindow       time.Duration
	ClientTimeout     time.Duration

	// NewCommand builds child commands. Nil uses exec.Command.
	NewCommand CommandFunc
}

// ConfigFromSettings derives a Config from the global settings.
func ConfigFromSettings(s *models.Settings) Config {
	return Config{
		Ports: map[Role]int{
			RoleBackground: s.Ports.Background,
			RoleUI:         s.Ports.UI,
		},
		ReadyTimeout:  s.Timeouts.Ready,
		GraceWindow:   s.Timeouts.Grace,
		ClientTimeout: s.Timeouts.ClientRead,
	}
}

// EventKind describes a child lifecycle transition.
type EventKind int

const (
	EventStarted EventKind = iota
	EventReady
	EventStopped
	EventKilled
	EventExited // exited without being asked to
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventReady:
		return "ready"
	case EventStopped:
		return "stopped"
	case EventKilled:
		return "killed"
	case EventExited:
		return "exited"
	default:
		return "unknown"
	}
}

// Event is delivered to observers on every child transition.
type Event struct {
	Role Role
	Kind EventKind
	PID  int
}

// Observer receives child lifecycle events. It may run while the registry
// lock is held and must not call back into the Supervisor.
type Observer func(Event)

// ChildStatus is a point-in-time view of one role.
type ChildStatus struct {
	Role      Role
	Running   bool
	PID       int
	StartedAt time.Time
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithObserver registers an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Supervisor) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// Supervisor owns the child registry: one slot per role, all access
// serialized by mu.
type Supervisor struct {
	cfg       Config
	logger    *zap.Logger
	observers []Observer

	mu       sync.Mutex
	children map[Role]*Child
}

// New creates a supervisor with no children running.
func New(cfg Config, logger *zap.Logger, opts ...Option) *Supervisor {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	if cfg.ReadyPollInterval <= 0 {
		cfg.ReadyPollInterval = DefaultReadyPollInterval
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = DefaultGraceWindow
	}
	if cfg.ClientTimeout <= 0 {
		cfg.ClientTimeout = DefaultClientTimeout
	}
	if cfg.NewCommand == nil {
		cfg.NewCommand = exec.Command
	}
	if cfg.Ports == nil {
		cfg.Ports = map[Role]int{
			RoleBackground: models.DefaultBackgroundPort,
			RoleUI:         models.DefaultUIPort,
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Supervisor{
		cfg:      cfg,
		logger:   logger,
		children: make(map[Role]*Child),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start spawns the role's child unless a live one exists, then waits
// until it answers Ping or the ready timeout passes.
func (s *Supervisor) Start(ctx context.Context, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.children[role]; c != nil && c.Alive() {
		s.logger.Debug("already running", zap.Stringer("role", role), zap.Int("pid", c.PID()))
		return nil
	}

	path, err := s.executablePath(role)
	if err != nil {
		return &SpawnError{Role: role, Path: path, Err: err}
	}

	// A reply on an occupied port would be mistaken for the new child's.
	if s.client(role).Reachable(ctx) {
		return &PortInUseError{Role: role, Port: s.cfg.Ports[role]}
	}

	cmd := s.cfg.NewCommand(path, s.cfg.Args...)
	setPlatformProcAttr(cmd)

	child, err := startChild(role, cmd, s.childExited)
	if err != nil {
		return &SpawnError{Role: role, Path: path, Err: err}
	}
	s.children[role] = child
	s.logger.Info("child started", zap.Stringer("role", role), zap.Int("pid", child.PID()), zap.String("path", path))
	s.notify(Event{Role: role, Kind: EventStarted, PID: child.PID()})

	return s.awaitReady(ctx, child)
}

// awaitReady polls the child's control port with Ping. A child that never
// answers is left running; a child that exits is an error.
func (s *Supervisor) awaitReady(ctx context.Context, child *Child) error {
	role := child.Role()
	client := s.client(role)

	deadline := time.Now().Add(s.cfg.ReadyTimeout)
	for {
		pingCtx, cancel := context.WithTimeout(ctx, s.cfg.ReadyPollInterval*4)
		reply, err := client.Ping(pingCtx)
		cancel()
		if err == nil && reply != nil {
			if !child.Alive() {
				return fmt.Errorf("%s: %w: %v", role, ErrExitedDuringStartup, child.ExitErr())
			}
			s.logger.Debug("child ready", zap.Stringer("role", role), zap.Stringer("reply", *reply))
			s.notify(Event{Role: role, Kind: EventReady, PID: child.PID()})
			return nil
		}

		if !child.Alive() {
			return fmt.Errorf("%s: %w: %v", role, ErrExitedDuringStartup, child.ExitErr())
		}
		if time.Now().After(deadline) {
			s.logger.Warn("child not answering yet, continuing",
				zap.Stringer("role", role), zap.Duration("ready_timeout", s.cfg.ReadyTimeout))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-child.Done():
		case <-time.After(s.cfg.ReadyPollInterval):
		}
	}
}

// Stop asks the role's child to exit, waits up to the grace window and
// kills it if it is still alive. The slot is empty afterwards.
func (s *Supervisor) Stop(ctx context.Context, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	child := s.children[role]
	if child == nil {
		return nil
	}
	delete(s.children, role)

	if !child.Alive() {
		return nil
	}
	if err := s.client(role).Send(ctx, stopCommand(role)); err != nil {
		s.logger.Debug("graceful stop not delivered", zap.Stringer("role", role), zap.Error(err))
	}

	if child.WaitTimeout(ctx, s.cfg.GraceWindow) {
		s.logger.Info("child stopped", zap.Stringer("role", role), zap.Int("pid", child.PID()))
		s.notify(Event{Role: role, Kind: EventStopped, PID: child.PID()})
		return nil
	}

	s.logger.Warn("child did not exit within grace window, killing",
		zap.Stringer("role", role), zap.Int("pid", child.PID()), zap.Duration("grace", s.cfg.GraceWindow))
	if err := child.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill %s process %d: %w", role, child.PID(), err)
	}
	// The wait goroutine reaps the process; a kill is never refused.
	<-child.Done()
	s.notify(Event{Role: role, Kind: EventKilled, PID: child.PID()})
	return nil
}

// StopAll stops the UI and then the background process.
func (s *Supervisor) StopAll(ctx context.Context) error {
	var errs []error
	for _, role := range Roles() {
		if err := s.Stop(ctx, role); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StartBackground starts the background process.
func (s *Supervisor) StartBackground(ctx context.Context) error {
	return s.Start(ctx, RoleBackground)
}

// StopBackground stops the background process.
func (s *Supervisor) StopBackground(ctx context.Context) error {
	return s.Stop(ctx, RoleBackground)
}

// StartUI starts the UI process.
func (s *Supervisor) StartUI(ctx context.Context) error {
	return s.Start(ctx, RoleUI)
}

// StopUI stops the UI process.
func (s *Supervisor) StopUI(ctx context.Context) error {
	return s.Stop(ctx, RoleUI)
}

// Running reports whether the role has a live child.
func (s *Supervisor) Running(role Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.children[role]
	return c != nil && c.Alive()
}

// Ping sends Ping to the role's control port.
func (s *Supervisor) Ping(ctx context.Context, role Role) (*ipc.Command, error) {
	return s.client(role).Ping(ctx)
}

// Snapshot returns the status of every role.
func (s *Supervisor) Snapshot() []ChildStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ChildStatus, 0, len(Roles()))
	for _, role := range []Role{RoleBackground, RoleUI} {
		st := ChildStatus{Role: role}
		if c := s.children[role]; c != nil && c.Alive() {
			st.Running = true
			st.PID = c.PID()
			st.StartedAt = c.StartedAt()
		}
		out = append(out, st)
	}
	return out
}

// Port returns the role's control port.
func (s *Supervisor) Port(role Role) int {
	return s.cfg.Ports[role]
}

func (s *Supervisor) client(role Role) *ipc.Client {
	return ipc.NewClient(s.cfg.Ports[role],
		ipc.WithDialTimeout(s.cfg.ClientTimeout),
		ipc.WithReadTimeout(s.cfg.ClientTimeout),
		ipc.WithClientLogger(s.logger),
	)
}

func (s *Supervisor) executablePath(role Role) (string, error) {
	name := role.ExecutableName()
	if n, ok := s.cfg.Executables[role]; ok && n != "" {
		name = n
	}
	if filepath.IsAbs(name) {
		return name, nil
	}

	dir := s.cfg.Dir
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return name, fmt.Errorf("failed to locate own executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		dir = filepath.Dir(exe)
	}
	return filepath.Join(dir, name), nil
}

// childExited runs on the reaper goroutine of every child.
func (s *Supervisor) childExited(c *Child) {
	s.mu.Lock()
	expected := s.children[c.Role()] != c
	s.mu.Unlock()
	if expected {
		return
	}
	// Slot is kept; Running and Start already treat a dead handle as empty.
	s.logger.Warn("child exited", zap.Stringer("role", c.Role()), zap.Int("pid", c.PID()), zap.Error(c.ExitErr()))
	s.notify(Event{Role: c.Role(), Kind: EventExited, PID: c.PID()})
}

func (s *Supervisor) notify(ev Event) {
	for _, o := range s.observers {
		o(ev)
	}
}

func stopCommand(role Role) ipc.Command {
	if role == RoleUI {
		return ipc.CloseUI
	}
	return ipc.StopBackground
}
