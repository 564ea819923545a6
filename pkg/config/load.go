package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cicd-ai-toolkit/cicd-status/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "CICD_STATUS"
	// EnvConfigPath points at an explicit config file.
	EnvConfigPath = EnvPrefix + "_CONFIG"
)

// Config file names searched for, in order, in each directory.
var defaultConfigFiles = []string{
	".cicd-status.yaml",
	".cicd-status.yml",
}

// Loader loads configuration from a file and the environment.
type Loader struct {
	path     string
	startDir string
}

// NewLoader creates a loader that searches from the working directory.
func NewLoader() *Loader {
	return &Loader{startDir: "."}
}

// WithPath loads exactly this file instead of searching.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithStartDir sets the directory the parent search starts from.
func (l *Loader) WithStartDir(dir string) *Loader {
	l.startDir = dir
	return l
}

// Load resolves the configuration with this precedence:
// 1. Defaults
// 2. The file given by WithPath, CICD_STATUS_CONFIG, or found by walking up
//    from the start directory
// 3. CICD_STATUS_* environment variables
//
// A missing file is not an error when none was asked for explicitly.
func (l *Loader) Load() (*Config, error) {
	path := l.path
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = findInParents(l.startDir)
	}

	var cfg *Config
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = DefaultConfig()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := NewValidator().Validate(cfg); err != nil {
		return nil, errors.ConfigError("config validation failed", err)
	}
	return cfg, nil
}

// LoadFile reads one YAML file and fills unset fields with defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to read config file: %s", path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to parse config file: %s", path), err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// findInParents returns the first config file found in startDir or one of
// its parents, or "" when there is none.
func findInParents(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		for _, name := range defaultConfigFiles {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// applyEnvOverrides applies CICD_STATUS_<SECTION>_<KEY> variables.
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"GITHUB_HOST":           &cfg.GitHub.Host,
		"GITHUB_AUTH_TYPE":      &cfg.GitHub.AuthType,
		"GITHUB_USERNAME":       &cfg.GitHub.Username,
		"GITHUB_TOKEN_ENV":      &cfg.GitHub.TokenEnv,
		"GITHUB_PASSWORD_ENV":   &cfg.GitHub.PasswordEnv,
		"GITHUB_OWNER":          &cfg.GitHub.Owner,
		"GITHUB_REPO":           &cfg.GitHub.Repo,
		"GITHUB_STATUS_CONTEXT": &cfg.GitHub.StatusContext,
		"LOG_LEVEL":             &cfg.Log.Level,
		"LOG_FORMAT":            &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + "_" + key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"HTTP_TIMEOUT":           &cfg.HTTP.Timeout,
		"RETRY_MAX_ELAPSED":      &cfg.Retry.MaxElapsed,
		"RETRY_INITIAL_INTERVAL": &cfg.Retry.InitialInterval,
	}
	for key, dst := range durations {
		v := os.Getenv(EnvPrefix + "_" + key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.ConfigError(fmt.Sprintf("invalid duration in %s_%s", EnvPrefix, key), err)
		}
		*dst = d
	}

	if v := os.Getenv(EnvPrefix + "_HTTP_SSRF_PROTECTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.ConfigError("invalid boolean in "+EnvPrefix+"_HTTP_SSRF_PROTECTION", err)
		}
		cfg.HTTP.SSRFProtection = b
	}
	if v := os.Getenv(EnvPrefix + "_RETRY_MAX_RETRIES"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return errors.ConfigError("invalid number in "+EnvPrefix+"_RETRY_MAX_RETRIES", err)
		}
		cfg.Retry.MaxRetries = n
	}
	return nil
}
