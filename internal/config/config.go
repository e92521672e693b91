package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "solix"
	configFile = "config.yaml"
)

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigErr  error

	fileMutex sync.Mutex
)

// Config is the persisted client configuration: account credentials,
// request throttling knobs and the broker certificate cache location.
type Config struct {
	Version  int      `yaml:"version"`
	Account  Account  `yaml:"account"`
	Throttle Throttle `yaml:"throttle,omitempty"`
	Mqtt     Mqtt     `yaml:"mqtt,omitempty"`
}

// Account holds the cloud credentials and home region country code.
type Account struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Country  string `yaml:"country"`
}

// Throttle tunes the per endpoint rate limiting. Zero values fall back
// to the built in defaults.
type Throttle struct {
	// EndpointLimit caps requests per rolling minute on endpoints that
	// have answered with 429 before.
	EndpointLimit int `yaml:"endpoint_limit,omitempty"`
	// CooldownSeconds is the pause after receiving a 429.
	CooldownSeconds int `yaml:"cooldown_seconds,omitempty"`
	// RequestDelayMs spaces consecutive requests.
	RequestDelayMs int `yaml:"request_delay_ms,omitempty"`
}

// Cooldown returns the configured cooldown as a duration, zero when
// unset.
func (t Throttle) Cooldown() time.Duration {
	return time.Duration(t.CooldownSeconds) * time.Second
}

// Mqtt holds the broker session settings.
type Mqtt struct {
	// CertDir is where the account certificates are cached. Empty
	// means a "certs" directory next to the config file.
	CertDir string `yaml:"cert_dir,omitempty"`
}

// NewConfig returns an empty configuration at the current version.
func NewConfig() *Config {
	return &Config{Version: 1}
}

// Validate checks the fields a cloud session cannot run without.
func (c *Config) Validate() error {
	if c.Account.Email == "" {
		return fmt.Errorf("account email is required")
	}
	if c.Account.Password == "" {
		return fmt.Errorf("account password is required")
	}
	if c.Account.Country == "" {
		return fmt.Errorf("account country code is required")
	}
	return nil
}

// CertDir returns the configured certificate cache directory, or the
// default next to the config file.
func (c *Config) CertDir() (string, error) {
	if c.Mqtt.CertDir != "" {
		return c.Mqtt.CertDir, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "certs"), nil
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/solix or $HOME/.config/solix
//   - macOS: $HOME/.config/solix
//   - Windows: %LOCALAPPDATA%\solix
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

func ensureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// Load loads the configuration from disk. A missing file yields a new
// empty configuration. Thread-safe; repeated calls return the same
// instance.
func Load() (*Config, error) {
	globalConfigOnce.Do(func() {
		globalConfig, globalConfigErr = loadFromDisk()
	})
	return globalConfig, globalConfigErr
}

func loadFromDisk() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFile(configPath)
}

// LoadFile loads a configuration from an explicit path. A missing file
// yields a new empty configuration.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", cfg.Version)
	}
	return &cfg, nil
}

// Save writes the configuration to disk atomically: to a temporary
// file first, then renamed into place.
func (c *Config) Save() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := ensureConfigDir(); err != nil {
		return err
	}
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return c.saveTo(configPath)
}

// SaveFile writes the configuration to an explicit path atomically.
func (c *Config) SaveFile(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return c.saveTo(path)
}

func (c *Config) saveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Solix client configuration.
# This file stores the cloud account credentials, so keep its
# permissions restrictive.

`)
	data = append(header, data...)

	// Write to a temporary file first, then rename into place.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config file: %w", err)
	}
	return nil
}
