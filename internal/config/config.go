package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"soundtrip/internal/story"
)

// Config holds all soundtrip configuration.
type Config struct {
	// API configures the story service client.
	API APIConfig `yaml:"api"`

	// Storage configures the local key-value store.
	Storage StorageConfig `yaml:"storage"`

	// Profile and AudioStyle are sent with every request. They are not
	// editable from the form.
	Profile    ProfileConfig    `yaml:"profile"`
	AudioStyle AudioStyleConfig `yaml:"audio_style"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the story service.
type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	Timeout      string `yaml:"timeout"`
	MaxAttempts  int    `yaml:"max_attempts"` // total tries per request, 1 disables retry
	RetryBackoff string `yaml:"retry_backoff"`
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	Driver string `yaml:"driver"` // sqlite (pure Go), sqlite3 (cgo), memory
	Path   string `yaml:"path"`   // relative paths resolve against the home directory
}

// ProfileConfig mirrors story.UserProfile.
type ProfileConfig struct {
	AgeRange   string   `yaml:"age_range"`
	Companions string   `yaml:"companions"`
	Mood       []string `yaml:"mood"`
	Budget     string   `yaml:"budget"`
}

// AudioStyleConfig mirrors story.AudioStyle.
type AudioStyleConfig struct {
	Voice string   `yaml:"voice"`
	BGM   string   `yaml:"bgm"`
	SFX   []string `yaml:"sfx"`
}

const (
	// FileName is the config file name inside the home directory.
	FileName = "config.yaml"

	defaultTimeout      = 120 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
)

// ValidDrivers lists the supported storage drivers.
var ValidDrivers = []string{"sqlite", "sqlite3", "memory"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	profile := story.DefaultProfile()
	audio := story.DefaultAudioStyle()

	return &Config{
		API: APIConfig{
			BaseURL:      "http://localhost:8000",
			Timeout:      "120s",
			MaxAttempts:  2,
			RetryBackoff: "500ms",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "soundtrip.db",
		},
		Profile: ProfileConfig{
			AgeRange:   profile.AgeRange,
			Companions: profile.Companions,
			Mood:       profile.Mood,
			Budget:     profile.Budget,
		},
		AudioStyle: AudioStyleConfig{
			Voice: audio.Voice,
			BGM:   audio.BGM,
			SFX:   audio.SFX,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   "logs/soundtrip.log",
		},
	}
}

// DefaultHome returns the data directory: $SOUNDTRIP_HOME, else ~/.soundtrip.
func DefaultHome() string {
	if home := os.Getenv("SOUNDTRIP_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".soundtrip"
	}
	return filepath.Join(userHome, ".soundtrip")
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(home, FileName)
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// A .env file next to the config is loaded before environment overrides
// are applied; variables already set in the process win.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if base := os.Getenv("SOUNDTRIP_API_BASE"); base != "" {
		c.API.BaseURL = base
	}
	if timeout := os.Getenv("SOUNDTRIP_TIMEOUT"); timeout != "" {
		c.API.Timeout = timeout
	}
	if path := os.Getenv("SOUNDTRIP_DB"); path != "" {
		c.Storage.Path = path
	}
	if driver := os.Getenv("SOUNDTRIP_STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if debug := os.Getenv("SOUNDTRIP_DEBUG"); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

// GetTimeout returns the per-request timeout as a duration.
func (c *Config) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return defaultTimeout
	}
	return d
}

// GetRetryBackoff returns the base retry backoff as a duration.
func (c *Config) GetRetryBackoff() time.Duration {
	d, err := time.ParseDuration(c.API.RetryBackoff)
	if err != nil || d <= 0 {
		return defaultRetryBackoff
	}
	return d
}

// DatabasePath resolves the storage path against home.
func (c *Config) DatabasePath(home string) string {
	if c.Storage.Path == "" || filepath.IsAbs(c.Storage.Path) {
		return c.Storage.Path
	}
	return filepath.Join(home, c.Storage.Path)
}

// Builder returns the request builder for the configured profile and audio style.
func (c *Config) Builder() story.Builder {
	return story.Builder{
		Profile: story.UserProfile{
			AgeRange:   c.Profile.AgeRange,
			Companions: c.Profile.Companions,
			Mood:       c.Profile.Mood,
			Budget:     c.Profile.Budget,
		},
		AudioStyle: story.AudioStyle{
			Voice: c.AudioStyle.Voice,
			BGM:   c.AudioStyle.BGM,
			SFX:   c.AudioStyle.SFX,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid api base_url: %q (want http(s)://host[:port])", c.API.BaseURL)
	}

	if c.API.MaxAttempts < 1 {
		return fmt.Errorf("invalid api max_attempts: %d (want >= 1)", c.API.MaxAttempts)
	}

	validDriver := false
	for _, d := range ValidDrivers {
		if c.Storage.Driver == d {
			validDriver = true
			break
		}
	}
	if !validDriver {
		return fmt.Errorf("invalid storage driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}

	if c.Storage.Driver != "memory" && c.Storage.Path == "" {
		return fmt.Errorf("storage path required for driver %s", c.Storage.Driver)
	}

	return nil
}
