package apiclient

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

const defaultAPIBaseURL = "http://localhost:8080"

// CLIConfig is the on-disk configuration for the command line client.
type CLIConfig struct {
	APIBaseURL string `json:"apiBaseUrl"`
	Token      string `json:"token"`
	Email      string `json:"email"`
}

func ConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "clienthub", "config.json"), nil
}

func LoadCLIConfig() (CLIConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return CLIConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return CLIConfig{APIBaseURL: defaultAPIBaseURL}, nil
		}
		return CLIConfig{}, err
	}
	var cfg CLIConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return cfg, nil
}

func SaveCLIConfig(cfg CLIConfig) error {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	payload, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}
