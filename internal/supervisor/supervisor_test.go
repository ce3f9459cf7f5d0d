package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongapp/bong/internal/ipc"
)

// TestHelperProcess is not a real test. It is re-executed as a child by
// helperCommand and behaves according to the mode encoded in its name.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) < 2 {
		os.Exit(2)
	}
	parts := strings.Split(args[1], "-")
	mode, role := parts[0], parts[1]
	port, _ := strconv.Atoi(parts[2])
	os.Exit(runHelper(mode, role, port))
}

func runHelper(mode, role string, port int) int {
	switch mode {
	case "crash":
		return 3
	case "mute":
		time.Sleep(time.Minute)
		return 0
	}

	srv, err := ipc.Listen(port)
	if err != nil {
		return 4
	}
	status := ipc.BackgroundStatus(true)
	if role == "ui" {
		status = ipc.UIStatus(true)
	}
	_ = srv.Serve(context.Background(), ipc.HandlerFunc(func(_ context.Context, cmd ipc.Command) (*ipc.Command, error) {
		switch cmd.Kind {
		case ipc.KindPing:
			return ipc.Reply(status)
		case ipc.KindStopBackground, ipc.KindCloseUI, ipc.KindQuitAll:
			if mode == "obedient" {
				srv.Stop()
			}
		}
		return nil, nil
	}))
	return 0
}

func helperCommand(path string, _ ...string) *exec.Cmd {
	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$", "--", filepath.Base(path))
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := lis.Addr().(*net.TCPAddr).Port
	require.NoError(t, lis.Close())
	return port
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds(role Role) []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []EventKind
	for _, ev := range l.events {
		if ev.Role == role {
			out = append(out, ev.Kind)
		}
	}
	return out
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// newTestSupervisor wires helper children with the given modes.
func newTestSupervisor(t *testing.T, bgMode, uiMode string, mutate func(*Config)) (*Supervisor, *eventLog) {
	t.Helper()
	ports := map[Role]int{RoleBackground: freePort(t), RoleUI: freePort(t)}
	cfg := Config{
		Dir: t.TempDir(),
		Executables: map[Role]string{
			RoleBackground: fmt.Sprintf("%s-background-%d", bgMode, ports[RoleBackground]),
			RoleUI:         fmt.Sprintf("%s-ui-%d", uiMode, ports[RoleUI]),
		},
		Ports:        ports,
		ReadyTimeout: 10 * time.Second,
		GraceWindow:  300 * time.Millisecond,
		NewCommand:   helperCommand,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	events := &eventLog{}
	s := New(cfg, nil, WithObserver(events.observe))
	t.Cleanup(func() { _ = s.StopAll(context.Background()) })
	return s, events
}

func TestStartIsIdempotentWhileAlive(t *testing.T) {
	s, _ := newTestSupervisor(t, "obedient", "obedient", nil)
	ctx := context.Background()

	require.NoError(t, s.StartBackground(ctx))
	first := s.Snapshot()[0]
	require.True(t, first.Running)

	require.NoError(t, s.StartBackground(ctx))
	second := s.Snapshot()[0]
	assert.Equal(t, first.PID, second.PID)

	reply, err := s.Ping(ctx, RoleBackground)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, ipc.BackgroundStatus(true), *reply)
}

func TestStartAfterExitSpawnsNewChild(t *testing.T) {
	s, events := newTestSupervisor(t, "obedient", "obedient", nil)
	ctx := context.Background()

	require.NoError(t, s.StartBackground(ctx))
	first := s.Snapshot()[0]

	s.mu.Lock()
	child := s.children[RoleBackground]
	s.mu.Unlock()
	require.NoError(t, child.Kill())
	<-child.Done()

	assert.False(t, s.Running(RoleBackground))
	require.Eventually(t, func() bool {
		kinds := events.kinds(RoleBackground)
		return len(kinds) > 0 && kinds[len(kinds)-1] == EventExited
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.StartBackground(ctx))
	second := s.Snapshot()[0]
	assert.True(t, second.Running)
	assert.NotEqual(t, first.PID, second.PID)
}

func TestStopKillsChildIgnoringGracefulCommand(t *testing.T) {
	s, events := newTestSupervisor(t, "stubborn", "obedient", nil)
	ctx := context.Background()

	require.NoError(t, s.StartBackground(ctx))
	require.True(t, s.Running(RoleBackground))

	start := time.Now()
	require.NoError(t, s.StopBackground(ctx))
	assert.False(t, s.Running(RoleBackground))
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.Equal(t, []EventKind{EventStarted, EventReady, EventKilled}, events.kinds(RoleBackground))
}

func TestStopGracefulChild(t *testing.T) {
	s, events := newTestSupervisor(t, "obedient", "obedient", nil)
	ctx := context.Background()

	require.NoError(t, s.StartUI(ctx))
	require.NoError(t, s.StopUI(ctx))
	assert.False(t, s.Running(RoleUI))
	assert.Equal(t, []EventKind{EventStarted, EventReady, EventStopped}, events.kinds(RoleUI))

	require.NoError(t, s.StopUI(ctx), "stopping an empty slot is a no-op")
}

func TestStartMissingExecutableIsSpawnError(t *testing.T) {
	s := New(Config{Dir: t.TempDir()}, nil)

	err := s.StartBackground(context.Background())
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.Equal(t, RoleBackground, spawnErr.Role)
	assert.False(t, s.Running(RoleBackground))
}

func TestChildExitingDuringStartup(t *testing.T) {
	s, events := newTestSupervisor(t, "crash", "obedient", nil)

	err := s.StartBackground(context.Background())
	require.ErrorIs(t, err, ErrExitedDuringStartup)
	assert.False(t, s.Running(RoleBackground))

	require.Eventually(t, func() bool {
		kinds := events.kinds(RoleBackground)
		return len(kinds) == 2 && kinds[1] == EventExited
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartRefusesOccupiedPort(t *testing.T) {
	s, events := newTestSupervisor(t, "obedient", "obedient", nil)

	foreign, err := ipc.Listen(s.Port(RoleBackground))
	require.NoError(t, err)
	defer foreign.Stop()
	go func() {
		_ = foreign.Serve(context.Background(), ipc.HandlerFunc(func(context.Context, ipc.Command) (*ipc.Command, error) {
			return ipc.Reply(ipc.BackgroundStatus(true))
		}))
	}()

	err = s.StartBackground(context.Background())
	var inUse *PortInUseError
	require.ErrorAs(t, err, &inUse)
	assert.Equal(t, RoleBackground, inUse.Role)
	assert.Equal(t, s.Port(RoleBackground), inUse.Port)

	assert.False(t, s.Running(RoleBackground))
	assert.Empty(t, events.kinds(RoleBackground))
}

func TestReplyFromDeadChildIsNotReady(t *testing.T) {
	s, events := newTestSupervisor(t, "crash", "obedient", func(c *Config) {
		c.ReadyPollInterval = time.Second
	})
	port := s.Port(RoleBackground)

	// Bind after the occupancy check so the crashing child appears to answer.
	bound := make(chan *ipc.Server, 1)
	s.observers = append(s.observers, func(ev Event) {
		if ev.Role != RoleBackground || ev.Kind != EventStarted {
			return
		}
		srv, err := ipc.Listen(port)
		if err != nil {
			bound <- nil
			return
		}
		go func() {
			_ = srv.Serve(context.Background(), ipc.HandlerFunc(func(context.Context, ipc.Command) (*ipc.Command, error) {
				// Outlives the crashing child, within the client read timeout.
				time.Sleep(1500 * time.Millisecond)
				return ipc.Reply(ipc.BackgroundStatus(true))
			}))
		}()
		bound <- srv
	})

	err := s.StartBackground(context.Background())
	if srv := <-bound; srv != nil {
		defer srv.Stop()
	}
	require.ErrorIs(t, err, ErrExitedDuringStartup)
	assert.False(t, s.Running(RoleBackground))
	assert.NotContains(t, events.kinds(RoleBackground), EventReady)
}

func TestStartReturnsAfterReadyTimeout(t *testing.T) {
	s, _ := newTestSupervisor(t, "mute", "obedient", func(c *Config) {
		c.ReadyTimeout = 200 * time.Millisecond
	})
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, s.StartBackground(ctx))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, s.Running(RoleBackground))

	require.NoError(t, s.StopBackground(ctx))
	assert.False(t, s.Running(RoleBackground))
}

func TestStartStopAllEndToEnd(t *testing.T) {
	s, events := newTestSupervisor(t, "obedient", "obedient", nil)
	ctx := context.Background()

	require.NoError(t, s.StartBackground(ctx))
	require.NoError(t, s.StartUI(ctx))

	reply, err := s.Ping(ctx, RoleBackground)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, ipc.BackgroundStatus(true), *reply)

	reply, err = s.Ping(ctx, RoleUI)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, ipc.UIStatus(true), *reply)

	require.NoError(t, s.StopAll(ctx))
	assert.False(t, s.Running(RoleBackground))
	assert.False(t, s.Running(RoleUI))

	var stops []Role
	for _, ev := range events.all() {
		if ev.Kind == EventStopped || ev.Kind == EventKilled {
			stops = append(stops, ev.Role)
		}
	}
	assert.Equal(t, []Role{RoleUI, RoleBackground}, stops)

	_, err = s.Ping(ctx, RoleUI)
	assert.True(t, ipc.IsConnectError(err))
}

func TestExecutablePath(t *testing.T) {
	s := New(Config{Dir: "/opt/bong"}, nil)
	got, err := s.executablePath(RoleUI)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/opt/bong", RoleUI.ExecutableName()), got)

	s = New(Config{Executables: map[Role]string{RoleUI: "/usr/bin/custom-ui"}}, nil)
	got, err = s.executablePath(RoleUI)
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/custom-ui", got)

	s = New(Config{}, nil)
	got, err = s.executablePath(RoleBackground)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, RoleBackground.ExecutableName()))
}

func TestStopCommand(t *testing.T) {
	assert.Equal(t, ipc.CloseUI, stopCommand(RoleUI))
	assert.Equal(t, ipc.StopBackground, stopCommand(RoleBackground))
}

func TestSpawnErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := error(&SpawnError{Role: RoleUI, Path: "/x", Err: inner})
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "ui")
}
