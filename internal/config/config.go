package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains the server configuration
type Config struct {
	MusicDir             string             `yaml:"music_dir"`
	Port                 int                `yaml:"port"`
	Verbose              bool               `yaml:"verbose"`
	MusicBrainzUserAgent string             `yaml:"musicbrainz_user_agent"`
	MusicBrainzRateLimit float64            `yaml:"musicbrainz_rate_limit"` // seconds between requests
	InferenceCacheTTL    int                `yaml:"inference_cache_ttl"`    // seconds
	FieldThresholds      map[string]float64 `yaml:"field_thresholds"`       // per-field confidence overrides
	MaxHistoryItems      int                `yaml:"max_history_items"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		MusicDir:             "/music",
		Port:                 8338,
		Verbose:              false,
		MusicBrainzUserAgent: "metaremote/1.0",
		MusicBrainzRateLimit: 1.0,
		InferenceCacheTTL:    3600,
		MaxHistoryItems:      1000,
	}
}

// LoadConfigFile loads configuration from a YAML file.
// If path is empty, searches standard locations. Returns defaults if no file found.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.MusicDir = ExpandHome(cfg.MusicDir)

	return cfg, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() string {
	home := homeDir()
	locations := []string{
		"./metaremote.yaml",
		"./metaremote.yml",
		filepath.Join(home, ".config", "metaremote", "config.yaml"),
		filepath.Join(home, ".config", "metaremote", "config.yml"),
		filepath.Join(home, ".metaremote.yaml"),
		filepath.Join(home, ".metaremote.yml"),
	}

	for _, path := range locations {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// SaveConfigFile saves the current configuration to a YAML file
func SaveConfigFile(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() string {
	return filepath.Join(homeDir(), ".config", "metaremote", "config.yaml")
}

// GetDefaultLogPath returns the default log directory path
func GetDefaultLogPath() string {
	return filepath.Join(homeDir(), ".local", "share", "metaremote", "logs")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MusicDir == "" {
		return fmt.Errorf("music_dir cannot be empty")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.MusicBrainzUserAgent == "" {
		return fmt.Errorf("musicbrainz_user_agent cannot be empty")
	}

	if c.MusicBrainzRateLimit < 0 {
		return fmt.Errorf("musicbrainz_rate_limit cannot be negative, got %.2f", c.MusicBrainzRateLimit)
	}

	if c.InferenceCacheTTL < 1 {
		return fmt.Errorf("inference_cache_ttl must be at least 1 second, got %d", c.InferenceCacheTTL)
	}

	if c.MaxHistoryItems < 1 {
		return fmt.Errorf("max_history_items must be at least 1, got %d", c.MaxHistoryItems)
	}

	for field, threshold := range c.FieldThresholds {
		if threshold < 0 || threshold > 100 {
			return fmt.Errorf("field_thresholds.%s must be between 0 and 100, got %.1f", field, threshold)
		}
	}

	return nil
}
