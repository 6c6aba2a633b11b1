package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	configDirName  = "signin"
	configFileName = "selections.json"
)

var ErrNoProject = errors.New("project config path is required")

// UserConfig holds per-user state that must not be committed with a project.
// Server selections are keyed by the resolved path of the project's signin.json,
// so two checkouts can point at different servers.
type UserConfig struct {
	Selections map[string]string `json:"selections"`
}

// GetConfigPath returns ~/.config/signin/selections.json
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDirName, configFileName), nil
}

// ProjectKey normalizes a project config path so the same file always maps to the same entry
func ProjectKey(projectConfigPath string) (string, error) {
	if projectConfigPath == "" {
		return "", ErrNoProject
	}
	abs, err := filepath.Abs(projectConfigPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", projectConfigPath, err)
	}
	// Resolve the directory, the file itself may not exist yet
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	return abs, nil
}

// Load reads the user configuration, returning an empty one when none is saved
func Load() (*UserConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return &UserConfig{Selections: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file: %w", err)
	}
	if cfg.Selections == nil {
		cfg.Selections = map[string]string{}
	}

	return &cfg, nil
}

// Save writes the user configuration through a temp file so a crash never leaves it truncated
func Save(cfg *UserConfig) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp, err := os.CreateTemp(configDir, configFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), configPath); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	return nil
}

// SetSelectedServer records the server chosen for a project. An empty URL forgets the choice.
func SetSelectedServer(projectConfigPath, serverURL string) error {
	key, err := ProjectKey(projectConfigPath)
	if err != nil {
		return err
	}

	cfg, err := Load()
	if err != nil {
		return err
	}

	if serverURL == "" {
		if _, ok := cfg.Selections[key]; !ok {
			return nil
		}
		delete(cfg.Selections, key)
	} else {
		cfg.Selections[key] = serverURL
	}
	return Save(cfg)
}

// GetSelectedServer returns the server URL chosen for a project, or "" if none
func GetSelectedServer(projectConfigPath string) (string, error) {
	key, err := ProjectKey(projectConfigPath)
	if err != nil {
		return "", err
	}

	cfg, err := Load()
	if err != nil {
		return "", err
	}

	return cfg.Selections[key], nil
}
