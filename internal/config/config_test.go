package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "sensor.db", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "celsius", cfg.Units)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, "sensor.yaml", `
db_path: /var/lib/sensor/sensor.db
listen_addr: ":9090"
units: fahrenheit
timezone: America/New_York
gateway:
  port: /dev/ttyUSB0
  serial:
    baud_rate: 9600
    parity: even
mqtt:
  enabled: true
  addr: ":1884"
udp:
  enabled: true
  addr: ":9200"
rollup:
  interval: 10m
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/sensor/sensor.db", cfg.DBPath)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "fahrenheit", cfg.Units)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Gateway.Port)
	assert.Equal(t, 9600, cfg.Gateway.Serial.BaudRate)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, ":1884", cfg.MQTT.Addr)
	assert.True(t, cfg.UDP.Enabled)
	assert.Equal(t, ":9200", cfg.UDP.Addr)
	assert.Equal(t, 10*time.Minute, cfg.RollupInterval())
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "partial.yml", "listen_addr: \":7070\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "sensor.db", cfg.DBPath)
	assert.Equal(t, "celsius", cfg.Units)
	assert.Zero(t, cfg.RollupInterval())
}

func TestLoadRejectsBadExtension(t *testing.T) {
	path := writeConfig(t, "sensor.json", "{}")
	_, err := Load(path)
	assert.ErrorContains(t, err, "extension")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsOversizeFile(t *testing.T) {
	body := "# padding\n" + strings.Repeat("#", 2*1024*1024) + "\n"
	path := writeConfig(t, "big.yaml", body)
	_, err := Load(path)
	assert.ErrorContains(t, err, "too large")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "broken.yaml", "listen_addr: [\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "parse")
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown units", func(c *Config) { c.Units = "furlongs" }, "unknown units"},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid timezone"},
		{"bad rollup interval", func(c *Config) { c.Rollup.Interval = "soon" }, "rollup interval"},
		{"bad parity", func(c *Config) { c.Gateway.Serial.Parity = "maybe" }, "serial options"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "America/Chicago"
	assert.Equal(t, "America/Chicago", cfg.Location().String())
}
