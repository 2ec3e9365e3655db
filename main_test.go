package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harrier-data/sensor.report/internal/config"
	"github.com/harrier-data/sensor.report/internal/linemux"
)

func TestOpenGatewaySelection(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		disabled bool
	}{
		{"disabled by config", func(c *config.Config) { c.Gateway.Disabled = true }, true},
		{"no port configured", func(c *config.Config) {}, true},
		{"mock feed", func(c *config.Config) { c.Gateway.Mock = true }, false},
		{"disabled wins over mock", func(c *config.Config) {
			c.Gateway.Disabled = true
			c.Gateway.Mock = true
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			t.Cleanup(func() {
				// the mock port writes received commands to a scratch file
				scratch, _ := filepath.Glob("mock_gateway_port*")
				for _, f := range scratch {
					os.Remove(f)
				}
			})

			m, err := openGateway(cfg)
			if err != nil {
				t.Fatalf("openGateway failed: %v", err)
			}
			defer m.Close()

			_, isDisabled := m.(*linemux.DisabledLineMux)
			if isDisabled != tt.disabled {
				t.Errorf("got disabled=%v, want %v", isDisabled, tt.disabled)
			}
		})
	}
}
