package cli

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bongapp/bong/internal/config"
	"github.com/bongapp/bong/internal/ipc"
	"github.com/bongapp/bong/internal/supervisor"
)

func startControlServer(t *testing.T, h ipc.Handler) int {
	t.Helper()

	srv, err := ipc.Listen(0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx, h) }()
	t.Cleanup(func() {
		srv.Stop()
		cancel()
		<-srv.Done()
	})
	return srv.Port()
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestPingChild(t *testing.T) {
	running := startControlServer(t, ipc.HandlerFunc(func(_ context.Context, cmd ipc.Command) (*ipc.Command, error) {
		return ipc.Reply(ipc.BackgroundStatus(true))
	}))
	mute := startControlServer(t, ipc.HandlerFunc(func(_ context.Context, cmd ipc.Command) (*ipc.Command, error) {
		return nil, nil
	}))

	tests := []struct {
		name    string
		port    int
		state   string
		details string
	}{
		{"running", running, stateRunning, "worker running"},
		{"mute", mute, stateUnresponsive, "no reply to ping"},
		{"stopped", freePort(t), stateStopped, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := pingChild(context.Background(), supervisor.RoleBackground, tt.port, 500*time.Millisecond)
			assert.Equal(t, "background", st.Name)
			assert.Equal(t, tt.port, st.Port)
			assert.Equal(t, tt.state, st.State)
			assert.Equal(t, tt.details, st.Details)
		})
	}
}

func TestDescribeReply(t *testing.T) {
	assert.Equal(t, "worker running", describeReply(ipc.BackgroundStatus(true)))
	assert.Equal(t, "worker stopped", describeReply(ipc.BackgroundStatus(false)))
	assert.Equal(t, "window open", describeReply(ipc.UIStatus(true)))
	assert.Equal(t, "window closed", describeReply(ipc.UIStatus(false)))
	assert.Equal(t, "replied "+ipc.Pong.String(), describeReply(ipc.Pong))
}

func TestLogsCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.HomeEnv, dir)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	path, err := config.LogFile("bong-background")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644))

	var out bytes.Buffer
	logsCmd.SetOut(&out)
	t.Cleanup(func() { logsCmd.SetOut(nil) })

	logLines = 2
	require.NoError(t, runLogs(logsCmd, []string{"bong-background"}))
	assert.Equal(t, "two\nthree\n", out.String())

	err = runLogs(logsCmd, []string{"bong-ui"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bong-background")
}

func TestPrintVersion(t *testing.T) {
	var out bytes.Buffer
	printVersion(&out, "bong-ui")
	assert.Contains(t, out.String(), "bong-ui")
	assert.Contains(t, out.String(), "Commit")
}
