// Package config resolves run configuration: an optional YAML file for
// non-secret defaults, overridden by environment variables. The admin
// password only ever comes from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables, compatible with the original tooling.
const (
	EnvBaseURL = "MAILMAN_BASE_URL"
	EnvList    = "MAILMAN_LIST_NAME"
	EnvAdminPW = "MAILMAN_ADMIN_PW"
)

// Config holds everything a run needs. BaseURL, List and AdminPW are
// required; the rest defaults sensibly.
type Config struct {
	BaseURL string `yaml:"base_url"`
	List    string `yaml:"list"`
	AdminPW string `yaml:"-"` // environment only, never read from or written to a file

	DumpDir   string `yaml:"dump_dir,omitempty"`
	HistoryDB string `yaml:"history_db,omitempty"`
	Letters   string `yaml:"letters,omitempty"`
}

// MissingError is the fatal configuration error: required values
// absent. It is raised before any network activity and maps to a
// distinct process exit status.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Vars, ", "))
}

func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".mmunblock", "config.yaml")
}

func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(home, ".mmunblock", "history.db")
}

// Load reads the config file when it exists, then applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// env-only setup
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvList); v != "" {
		cfg.List = v
	}
	cfg.AdminPW = os.Getenv(EnvAdminPW)

	if cfg.HistoryDB == "" {
		cfg.HistoryDB = DefaultHistoryPath()
	}

	return &cfg, nil
}

// Validate reports every missing required value at once.
func (c *Config) Validate() error {
	var missing []string
	if c.BaseURL == "" {
		missing = append(missing, EnvBaseURL)
	}
	if c.List == "" {
		missing = append(missing, EnvList)
	}
	if c.AdminPW == "" {
		missing = append(missing, EnvAdminPW)
	}
	if len(missing) > 0 {
		return &MissingError{Vars: missing}
	}
	return nil
}
