package config

import (
	"fmt"

	"github.com/bongapp/bong/internal/models"
)

// LoadSettings loads the global settings from ~/.bong/settings.yaml.
// Keys missing from the file keep their default values.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}

	settings := models.NewSettings()
	if FileExists(path) {
		if err := LoadYAML(path, settings); err != nil {
			return nil, err
		}
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings saves the global settings to ~/.bong/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}
