package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tunnelctl/internal/config"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(true, true, "/tmp/tunnelctl.yaml")
	assert.True(t, cfg.NoTUI)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/tunnelctl.yaml", cfg.ConfigPath)
	assert.Nil(t, cfg.TunnelctlConfig, "configuration is loaded by NewApplication")
}

func TestApplyOverrides(t *testing.T) {
	tests := []struct {
		name    string
		app     Config
		wantURL string
		wantMCP bool
		wantPrt int
	}{
		{
			name:    "no flags keep file values",
			app:     Config{},
			wantURL: config.DefaultBackendURL,
			wantPrt: config.DefaultMCPPort,
		},
		{
			name:    "backend url",
			app:     Config{BackendURL: "wss://backend.example:443/events"},
			wantURL: "wss://backend.example:443/events",
			wantPrt: config.DefaultMCPPort,
		},
		{
			name:    "mcp enabled on another port",
			app:     Config{EnableMCP: true, MCPPort: 9999},
			wantURL: config.DefaultBackendURL,
			wantMCP: true,
			wantPrt: 9999,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.GetDefaultConfig()
			tt.app.applyOverrides(&cfg)
			assert.Equal(t, tt.wantURL, cfg.Backend.URL)
			assert.Equal(t, tt.wantMCP, cfg.MCP.Enabled)
			assert.Equal(t, tt.wantPrt, cfg.MCP.Port)
		})
	}
}
