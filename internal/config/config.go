// Package config loads CLI configuration.
//
// Precedence, lowest to highest: built-in defaults → yaml config file →
// environment variables (after godotenv loads a local .env, if present).
// Command-line flags override on top of this in the cmd layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvBaseURL     = "TASKFLOW_API_BASE_URL"
	EnvCredentials = "TASKFLOW_CREDENTIALS"
	EnvLogLevel    = "TASKFLOW_LOG_LEVEL"
)

// Config is everything the CLI needs to reach the API.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8000/api".
	BaseURL string `yaml:"base_url"`
	// CredentialsPath is the sqlite credential store location.
	CredentialsPath string `yaml:"credentials_path"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the baseline configuration. The credential store defaults
// into the user's home directory so sessions survive across invocations.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		BaseURL:         "http://localhost:8000/api",
		CredentialsPath: filepath.Join(home, ".taskflow", "credentials.db"),
		LogLevel:        "info",
	}
}

// Load assembles the configuration. path points at a yaml config file; an
// empty path means "use ~/.taskflow/config.yaml if it exists". A missing
// file at the default location is fine; a missing file at an explicit path
// is an error.
func Load(path string) (Config, error) {
	// Pull a local .env into the process environment first, so env
	// overrides below see it. Absence is not an error.
	_ = godotenv.Load()

	cfg := Default()

	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".taskflow", "config.yaml")
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
			// default location, nothing there, fine
		default:
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvCredentials); v != "" {
		cfg.CredentialsPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
