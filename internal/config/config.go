// Package config loads the daemon's optional YAML configuration file.
// Command-line flags override anything set here, so partial configs are safe.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrier-data/sensor.report/internal/linemux"
	"github.com/harrier-data/sensor.report/internal/units"
)

// Config is the root of the YAML configuration file.
type Config struct {
	DBPath     string `yaml:"db_path"`
	ListenAddr string `yaml:"listen_addr"`
	Units      string `yaml:"units"`
	Timezone   string `yaml:"timezone"`

	Gateway GatewayConfig `yaml:"gateway"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	UDP     UDPConfig     `yaml:"udp"`
	Rollup  RollupConfig  `yaml:"rollup"`
}

// GatewayConfig configures the serial line feed.
type GatewayConfig struct {
	// Port is the serial device path, e.g. /dev/ttyUSB0.
	Port string `yaml:"port"`
	// Disabled runs the daemon without any gateway.
	Disabled bool `yaml:"disabled"`
	// Mock replaces the device with a synthetic feed for development.
	Mock bool `yaml:"mock"`

	Serial linemux.PortOptions `yaml:"serial"`
}

// MQTTConfig configures the embedded MQTT broker.
type MQTTConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// UDPConfig configures the UDP reading listener.
type UDPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RollupConfig configures the hourly rollup worker.
type RollupConfig struct {
	// Interval is a duration string like "5m"; empty uses the default.
	Interval string `yaml:"interval"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DBPath:     "sensor.db",
		ListenAddr: ":8080",
		Units:      units.Celsius,
		Timezone:   "UTC",
		MQTT:       MQTTConfig{Addr: ":1883"},
		UDP:        UDPConfig{Addr: ":9100"},
	}
}

// Load reads a YAML config file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints the YAML schema cannot express.
func (c *Config) Validate() error {
	if !units.IsKnown(c.Units) {
		return fmt.Errorf("unknown units %q: known units are %s", c.Units, units.ValidUnitsString())
	}
	if _, err := units.LoadLocation(c.Timezone); err != nil {
		return err
	}
	if c.Rollup.Interval != "" {
		if _, err := time.ParseDuration(c.Rollup.Interval); err != nil {
			return fmt.Errorf("invalid rollup interval: %w", err)
		}
	}
	if _, err := c.Gateway.Serial.Normalize(); err != nil {
		return fmt.Errorf("invalid gateway serial options: %w", err)
	}
	return nil
}

// Location returns the configured timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := units.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RollupInterval returns the parsed worker interval, or zero for the default.
func (c *Config) RollupInterval() time.Duration {
	if c.Rollup.Interval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Rollup.Interval)
	if err != nil {
		return 0
	}
	return d
}
