package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Environment string

const (
	EnvironmentDeployed    Environment = "deployed"
	EnvironmentDevelopment Environment = "development"
)

// Settings are the two flags handed to the initializer at startup.
type Settings struct {
	LogWarnings            bool `json:"logWarnings"`
	WaitForBackgroundPacks bool `json:"waitForBackgroundPacks"`
}

func DefaultSettings() Settings {
	return Settings{
		LogWarnings:            true,
		WaitForBackgroundPacks: false,
	}
}

// DecodeSettings reads the serialized settings blob. Missing fields keep
// their defaults and an empty blob yields DefaultSettings.
func DecodeSettings(blob []byte) (Settings, error) {
	settings := DefaultSettings()
	if len(bytes.TrimSpace(blob)) == 0 {
		return settings, nil
	}

	if err := json.Unmarshal(blob, &settings); err != nil {
		return settings, fmt.Errorf("invalid settings: %w", err)
	}

	return settings, nil
}

func (s Settings) Encode() ([]byte, error) {
	return json.Marshal(s)
}

type ManifestConfig struct {
	Paths []string `json:"paths"`
	URL   string   `json:"url"`
}

type Config struct {
	Environment     Environment    `json:"environment"`
	Settings        Settings       `json:"settings"`
	Manifest        ManifestConfig `json:"manifest"`
	PackContentRoot string         `json:"packContentRoot"`
}
