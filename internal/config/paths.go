// Package config handles configuration loading, saving, and path management.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

const (
	// GlobalDirName is the name of the global Bong directory.
	GlobalDirName = ".bong"

	// LogsDirName is the name of the logs directory.
	LogsDirName = "logs"

	// HomeEnv overrides the global directory when set.
	HomeEnv = "BONG_HOME"
)

// File names
const (
	SupervisorFileName = "supervisor.yaml"
	SettingsFileName   = "settings.yaml"
)

var (
	overrideMu  sync.RWMutex
	overrideDir string
)

// SetGlobalDir overrides the global directory for this process. An empty
// dir restores the default lookup.
func SetGlobalDir(dir string) {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	overrideDir = dir
}

// GlobalDir returns the path to the global Bong directory (~/.bong/).
func GlobalDir() (string, error) {
	overrideMu.RLock()
	dir := overrideDir
	overrideMu.RUnlock()
	if dir != "" {
		return dir, nil
	}

	if env := os.Getenv(HomeEnv); env != "" {
		return env, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

// GlobalSupervisorFile returns the path to the supervisor.yaml file.
func GlobalSupervisorFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SupervisorFileName), nil
}

// GlobalSettingsFile returns the path to the settings.yaml file.
func GlobalSettingsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// GlobalLogsDir returns the path to the logs directory.
func GlobalLogsDir() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogsDirName), nil
}

// LogFile returns the log file path for a process name.
func LogFile(process string) (string, error) {
	dir, err := GlobalLogsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, process+".log"), nil
}

// EnsureGlobalDir creates the global Bong directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// EnsureGlobalLogsDir creates the global logs directory if it doesn't exist.
func EnsureGlobalLogsDir() error {
	dir, err := GlobalLogsDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}
