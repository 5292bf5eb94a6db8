// Package config handles configuration file discovery, loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "gtasks"

	// ConfigFile is the config filename inside the config directory.
	ConfigFile = "config.yaml"

	// DefaultTokenFile is the stored OAuth token filename.
	DefaultTokenFile = "token.json"

	// DefaultScanIntervalSec is how often the bridge asks for fresh data.
	DefaultScanIntervalSec = 30

	// DefaultMinRefreshIntervalSec is the throttle window for remote polling.
	DefaultMinRefreshIntervalSec = 60

	// DefaultEntityName is the default sensor and binary sensor name.
	DefaultEntityName = "gtasks"

	// DefaultDiscoveryPrefix is the Home Assistant MQTT discovery prefix.
	DefaultDiscoveryPrefix = "homeassistant"
)

// ErrMissingFiles is returned by CheckFiles when required files are absent.
var ErrMissingFiles = errors.New("required files are missing")

// Config holds all settings. It is immutable after Load.
type Config struct {
	// CredentialsLocation is the OAuth client credentials JSON file.
	CredentialsLocation string `yaml:"credentials_location"`

	// TokenFile is the stored OAuth token file.
	TokenFile string `yaml:"token_file"`

	// DefaultList is the human-readable name of the task list to track.
	DefaultList string `yaml:"default_list"`

	ScanIntervalSec       int    `yaml:"scan_interval_sec"`
	MinRefreshIntervalSec int    `yaml:"min_refresh_interval_sec"`
	LogLevel              string `yaml:"log_level"`

	// DataDir holds runtime state such as the MQTT instance ID.
	// Defaults to the config directory.
	DataDir string `yaml:"data_dir"`

	Sensor        EntityConfig        `yaml:"sensor"`
	BinarySensor  EntityConfig        `yaml:"binary_sensor"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-"`
}

// EntityConfig names a presentation entity.
type EntityConfig struct {
	Name string `yaml:"name"`
}

// MQTTConfig defines the Home Assistant MQTT discovery bridge.
// An empty Broker disables the bridge.
type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	DeviceName      string `yaml:"device_name"`
}

// Configured reports whether the MQTT bridge is enabled.
func (m MQTTConfig) Configured() bool {
	return strings.TrimSpace(m.Broker) != ""
}

// HomeAssistantConfig defines the WebSocket event listener.
// An empty URL disables the listener.
type HomeAssistantConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Configured reports whether the event listener is enabled.
func (h HomeAssistantConfig) Configured() bool {
	return strings.TrimSpace(h.URL) != ""
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// DefaultSearchPaths returns the config file search order used when no
// explicit path is given.
func DefaultSearchPaths() []string {
	return []string{
		AppName + ".yaml",
		filepath.Join(DefaultConfigDir(), ConfigFile),
		filepath.Join("/etc", AppName, ConfigFile),
	}
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Default returns a configuration rooted at dir with every default applied.
// The required settings are left empty.
func Default(dir string) *Config {
	cfg := &Config{Dir: dir}
	cfg.applyDefaults()
	return cfg
}

// Load reads, expands, defaults and validates a YAML config file.
// Environment variables in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
	if c.ScanIntervalSec == 0 {
		c.ScanIntervalSec = DefaultScanIntervalSec
	}
	if c.MinRefreshIntervalSec == 0 {
		c.MinRefreshIntervalSec = DefaultMinRefreshIntervalSec
	}
	if c.Sensor.Name == "" {
		c.Sensor.Name = DefaultEntityName
	}
	if c.BinarySensor.Name == "" {
		c.BinarySensor.Name = DefaultEntityName
	}
	if c.MQTT.DiscoveryPrefix == "" {
		c.MQTT.DiscoveryPrefix = DefaultDiscoveryPrefix
	}
	if c.MQTT.DeviceName == "" {
		c.MQTT.DeviceName = AppName
	}

	c.CredentialsLocation = c.resolve(c.CredentialsLocation)
	c.TokenFile = c.resolve(c.TokenFile)
	if c.DataDir == "" {
		c.DataDir = c.Dir
	} else {
		c.DataDir = c.resolve(c.DataDir)
	}
}

// resolve makes a relative path relative to the config directory.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		key, value string
	}{
		{"credentials_location", c.CredentialsLocation},
		{"token_file", c.TokenFile},
		{"default_list", c.DefaultList},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if c.ScanIntervalSec < 0 {
		errs = append(errs, fmt.Errorf("scan_interval_sec must be positive, got %d", c.ScanIntervalSec))
	}
	if c.MinRefreshIntervalSec < 0 {
		errs = append(errs, fmt.Errorf("min_refresh_interval_sec must be positive, got %d", c.MinRefreshIntervalSec))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.HomeAssistant.Configured() && c.HomeAssistant.Token == "" {
		errs = append(errs, errors.New("homeassistant.token is required when homeassistant.url is set"))
	}
	return errors.Join(errs...)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return c.CredentialsLocation
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return c.TokenFile
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// CheckFiles verifies that the credentials and token files exist.
// The returned error wraps ErrMissingFiles and names every missing file.
func (c *Config) CheckFiles() error {
	var missing []string
	if !c.HasOAuthClient() {
		missing = append(missing, c.OAuthClientPath())
	}
	if !c.HasToken() {
		missing = append(missing, c.TokenPath())
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFiles, strings.Join(missing, ", "))
	}
	return nil
}

// EnsureTokenDir creates the token file's directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureTokenDir() error {
	return os.MkdirAll(filepath.Dir(c.TokenPath()), 0700)
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
