package models

import (
	"time"

	"github.com/google/uuid"
)

// SupervisorInfo describes the running supervisor.
// This corresponds to ~/.bong/supervisor.yaml.
type SupervisorInfo struct {
	Version    int       `yaml:"version"`
	InstanceID string    `yaml:"instance_id"`
	Host       string    `yaml:"host"`
	StatusPort int       `yaml:"status_port"`
	PID        int       `yaml:"pid"`
	StartedAt  time.Time `yaml:"started_at"`
}

// NewSupervisorInfo creates supervisor info with a fresh instance id.
func NewSupervisorInfo(host string, statusPort, pid int) *SupervisorInfo {
	return &SupervisorInfo{
		Version:    1,
		InstanceID: uuid.NewString(),
		Host:       host,
		StatusPort: statusPort,
		PID:        pid,
		StartedAt:  time.Now().UTC(),
	}
}
