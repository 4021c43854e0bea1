package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for habitsync.
type Config struct {
	Owner        string             `toml:"owner"`
	DeviceID     string             `toml:"device_id"`
	BaseDir      string             `toml:"base_dir"`
	LogDir       string             `toml:"log_dir"`
	Database     DatabaseConfig     `toml:"database"`
	Remote       RemoteConfig       `toml:"remote"`
	Encryption   EncryptionConfig   `toml:"encryption"`
	Connectivity ConnectivityConfig `toml:"connectivity"`
	Reminders    RemindersConfig    `toml:"reminders"`
}

// DatabaseConfig represents configuration for the local habit cache.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// RemoteConfig represents configuration for the remote document store backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type RemoteConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", or "s3"
	Name string `toml:"name"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // S3-compatible services; implies path-style addressing
}

// EncryptionConfig selects how remote documents are encrypted at rest.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age", or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// ConnectivityConfig selects how the device decides it is online.
type ConnectivityConfig struct {
	Mode         string `toml:"mode"`          // "probe" (default), "online", or "offline"
	ProbeTimeout string `toml:"probe_timeout"` // Go duration, e.g. "3s"
}

// RemindersConfig holds settings for the reminder loop of `habitsync watch`.
type RemindersConfig struct {
	Interval string `toml:"interval"` // Go duration, e.g. "1h"
}

const (
	DefaultProbeTimeout     = 3 * time.Second
	DefaultReminderInterval = time.Hour
)

// Timeout returns the probe timeout, falling back to DefaultProbeTimeout
// when unset.
func (c ConnectivityConfig) Timeout() (time.Duration, error) {
	return parseDuration("probe_timeout", c.ProbeTimeout, DefaultProbeTimeout)
}

// Every returns the reminder interval, falling back to
// DefaultReminderInterval when unset.
func (c RemindersConfig) Every() (time.Duration, error) {
	return parseDuration("interval", c.Interval, DefaultReminderInterval)
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", field, value)
	}
	return d, nil
}

// NewConfig creates a new Config with the provided values and defaults for
// everything else: a SQLite cache and filesystem remote under baseDir, no
// encryption and probe-based connectivity.
func NewConfig(owner, deviceID, baseDir string) *Config {
	return &Config{
		Owner:    owner,
		DeviceID: deviceID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Remote: RemoteConfig{
			Type:   "filesystem",
			Name:   "local",
			FSRoot: filepath.Join(baseDir, "remote"),
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "habitsync.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "habitsync.key"),
		},
		Connectivity: ConnectivityConfig{
			Mode:         "probe",
			ProbeTimeout: DefaultProbeTimeout.String(),
		},
		Reminders: RemindersConfig{
			Interval: DefaultReminderInterval.String(),
		},
	}
}

// Validate reports the first structural problem in cfg. Backend-specific
// fields are checked by the factories that consume them.
func (c *Config) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device_id is required")
	}
	if _, err := c.Connectivity.Timeout(); err != nil {
		return err
	}
	if _, err := c.Reminders.Every(); err != nil {
		return err
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. An existing file is never
// overwritten.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
