package app

import (
	"tunnelctl/internal/config"
)

// Config holds the application configuration
type Config struct {
	// UI mode
	NoTUI bool

	// Debug settings
	Debug bool

	// ConfigPath points at a single config file. Empty means layered loading.
	ConfigPath string

	// Flag overrides, applied on top of the loaded configuration.
	BackendURL string
	EnableMCP  bool
	MCPPort    int

	// Version is reported by the MCP server.
	Version string

	// Loaded tunnelctl configuration
	TunnelctlConfig *config.TunnelctlConfig
}

// NewConfig creates a new application configuration
func NewConfig(noTUI, debug bool, configPath string) *Config {
	return &Config{
		NoTUI:      noTUI,
		Debug:      debug,
		ConfigPath: configPath,
	}
}

// applyOverrides copies flag values onto the loaded configuration.
func (c *Config) applyOverrides(cfg *config.TunnelctlConfig) {
	if c.BackendURL != "" {
		cfg.Backend.URL = c.BackendURL
	}
	if c.EnableMCP {
		cfg.MCP.Enabled = true
	}
	if c.MCPPort > 0 {
		cfg.MCP.Port = c.MCPPort
	}
}
