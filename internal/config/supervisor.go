package config

import (
	"os"
	"syscall"

	"github.com/bongapp/bong/internal/models"
)

// LoadSupervisorInfo loads the supervisor info from ~/.bong/supervisor.yaml.
// Returns nil if the file doesn't exist.
func LoadSupervisorInfo() (*models.SupervisorInfo, error) {
	path, err := GlobalSupervisorFile()
	if err != nil {
		return nil, err
	}

	if !FileExists(path) {
		return nil, nil
	}

	var info models.SupervisorInfo
	if err := LoadYAML(path, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveSupervisorInfo saves the supervisor info to ~/.bong/supervisor.yaml.
func SaveSupervisorInfo(info *models.SupervisorInfo) error {
	if err := EnsureGlobalDir(); err != nil {
		return err
	}

	path, err := GlobalSupervisorFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, info)
}

// RemoveSupervisorInfo removes the supervisor.yaml file.
func RemoveSupervisorInfo() error {
	path, err := GlobalSupervisorFile()
	if err != nil {
		return err
	}

	if !FileExists(path) {
		return nil
	}
	return os.Remove(path)
}

// IsSupervisorRunning checks if the supervisor process is still running.
// Returns true if supervisor.yaml exists and the PID is alive.
func IsSupervisorRunning() (bool, *models.SupervisorInfo, error) {
	info, err := LoadSupervisorInfo()
	if err != nil {
		return false, nil, err
	}
	if info == nil {
		return false, nil, nil
	}

	if !ProcessAlive(info.PID) {
		// Stale file from a crashed supervisor
		_ = RemoveSupervisorInfo()
		return false, info, nil
	}
	return true, info, nil
}

// ProcessAlive reports whether pid refers to a live process.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
