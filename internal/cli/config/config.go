package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/signin-dev/signin/internal/flow"
)

const ConfigFileName = "signin.json"

// Server represents an identity server the CLI can log in to
type Server struct {
	URL      string `json:"url"`
	Alias    string `json:"alias"`
	Insecure bool   `json:"insecure,omitempty"` // Skip TLS verification for self-signed certificates
}

// Config represents the CLI configuration file
type Config struct {
	Servers []Server `json:"servers"`

	// Landing routes after login, defaults apply when empty
	Routes *flow.Routes `json:"routes,omitempty"`

	// LoginTimeout is a Go duration string, e.g. "30s"
	LoginTimeout string `json:"loginTimeout,omitempty"`

	// Path is the file the config was loaded from, empty for in-memory configs
	Path string `json:"-"`
}

// DefaultConfig returns a default configuration with an example server
func DefaultConfig() *Config {
	return &Config{
		Servers: []Server{
			{
				URL:   "",
				Alias: "e.g. local dev server",
			},
		},
	}
}

// FindConfigFile searches for signin.json in current directory and parent directories
func FindConfigFile() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	// Search upwards until we find signin.json or reach root
	dir := currentDir
	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("signin.json not found in %s or any parent directory", currentDir)
}

// Load reads the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Path = path

	return &cfg, nil
}

// LoadFromCurrentDir loads config from current directory or parent directories
func LoadFromCurrentDir() (*Config, error) {
	configPath, err := FindConfigFile()
	if err != nil {
		return nil, err
	}

	return Load(configPath)
}

// Save writes the configuration to a file
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the optional settings; server URLs are checked when a server is used
func (c *Config) Validate() error {
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.Routes != nil && (c.Routes.Privileged == "" || c.Routes.Standard == "") {
		return fmt.Errorf("routes must set both privileged and standard")
	}
	return nil
}

// Timeout returns the configured login timeout, or zero when unset
func (c *Config) Timeout() (time.Duration, error) {
	if c.LoginTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.LoginTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid loginTimeout %q", c.LoginTimeout)
	}
	return d, nil
}

// LandingRoutes returns the configured routes or the defaults
func (c *Config) LandingRoutes() flow.Routes {
	if c.Routes == nil {
		return flow.DefaultRoutes()
	}
	return *c.Routes
}

// GetServerByAlias returns a server by its alias
func (c *Config) GetServerByAlias(alias string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].Alias == alias {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with alias '%s' not found", alias)
}

// GetServerByURL returns a server by its URL
func (c *Config) GetServerByURL(serverURL string) (*Server, error) {
	for i := range c.Servers {
		if c.Servers[i].URL == serverURL {
			return &c.Servers[i], nil
		}
	}
	return nil, fmt.Errorf("server with URL '%s' not found", serverURL)
}

// GetDefaultServer returns the first server in the list
func (c *Config) GetDefaultServer() (*Server, error) {
	if len(c.Servers) == 0 {
		return nil, fmt.Errorf("no servers configured in signin.json")
	}
	return &c.Servers[0], nil
}

// CheckURL verifies the server URL is an absolute http(s) URL
func (s *Server) CheckURL() error {
	if s.URL == "" {
		return fmt.Errorf("server URL is empty. Please edit signin.json and add a valid URL")
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", s.URL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server URL %q: must be http(s)://host", s.URL)
	}
	return nil
}
