package daemon

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/bongapp/bong/internal/config"
	"github.com/bongapp/bong/internal/logging"
	"github.com/bongapp/bong/internal/models"
	"github.com/bongapp/bong/internal/supervisor"
	"github.com/bongapp/bong/internal/telemetry"
)

func setupHome(t *testing.T) {
	t.Helper()
	t.Setenv(config.HomeEnv, t.TempDir())
}

func testSettings() *models.Settings {
	s := models.NewSettings()
	s.Ports.Status = 0
	return s
}

func newDaemon(t *testing.T, opts ...Option) *Daemon {
	t.Helper()
	opts = append([]Option{WithTelemetry(telemetry.Nop())}, opts...)
	d, err := New(testSettings(), logging.Nop(), opts...)
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestNewRefusesSecondSupervisor(t *testing.T) {
	setupHome(t)

	require.NoError(t, config.SaveSupervisorInfo(models.NewSupervisorInfo("127.0.0.1", 1, os.Getpid())))

	_, err := New(testSettings(), logging.Nop(), WithTelemetry(telemetry.Nop()))
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestNewPassesConfigDirToChildren(t *testing.T) {
	setupHome(t)

	var got supervisor.Config
	newDaemon(t, WithSupervisorConfig(func(cfg *supervisor.Config) {
		got = *cfg
	}))

	dir, err := config.GlobalDir()
	require.NoError(t, err)
	assert.Equal(t, []string{"--config", dir}, got.Args)
	assert.Equal(t, models.DefaultBackgroundPort, got.Ports[supervisor.RoleBackground])
	assert.Equal(t, models.DefaultUIPort, got.Ports[supervisor.RoleUI])
}

func TestTrackStatus(t *testing.T) {
	setupHome(t)

	type status struct{ bg, ui bool }
	var calls []status
	d := newDaemon(t, WithStatusFunc(func(bg, ui bool) {
		calls = append(calls, status{bg, ui})
	}))

	d.trackStatus(supervisor.Event{Role: supervisor.RoleBackground, Kind: supervisor.EventStarted})
	d.trackStatus(supervisor.Event{Role: supervisor.RoleUI, Kind: supervisor.EventReady})
	d.trackStatus(supervisor.Event{Role: supervisor.RoleBackground, Kind: supervisor.EventKilled})
	d.trackStatus(supervisor.Event{Role: supervisor.RoleUI, Kind: supervisor.EventExited})

	assert.Equal(t, []status{
		{true, false},
		{true, true},
		{false, true},
		{false, false},
	}, calls)
}

func TestReloadSettingsAppliesLogLevel(t *testing.T) {
	setupHome(t)

	d := newDaemon(t)
	require.Equal(t, zapcore.InfoLevel, d.logger.Level())

	next := models.NewSettings()
	next.Logging.Level = "debug"
	require.NoError(t, config.SaveSettings(next))

	d.reloadSettings()
	assert.Equal(t, zapcore.DebugLevel, d.logger.Level())
	assert.Equal(t, "debug", d.Settings().Logging.Level)
}

func TestReloadSettingsIgnoresInvalidFile(t *testing.T) {
	setupHome(t)

	d := newDaemon(t)

	path, err := config.GlobalSettingsFile()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644))

	d.reloadSettings()
	assert.Equal(t, zapcore.InfoLevel, d.logger.Level())
	assert.Equal(t, "info", d.Settings().Logging.Level)
}

func TestCloseRemovesInfoFile(t *testing.T) {
	setupHome(t)

	d := newDaemon(t)
	require.NoError(t, config.SaveSupervisorInfo(d.Info()))

	d.Close()
	d.Close()

	info, err := config.LoadSupervisorInfo()
	require.NoError(t, err)
	assert.Nil(t, info)
}
