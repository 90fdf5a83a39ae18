package config

import "time"

const (
	DefaultBackendURL     = "ws://127.0.0.1:8091/events"
	DefaultDialTimeout    = 5 * time.Second
	DefaultCommandTimeout = 10 * time.Second
	DefaultMCPHost        = "localhost"
	DefaultMCPPort        = 8092
	DefaultNoticeLimit    = 20
)

// GetDefaultConfig returns the configuration used when no file overrides it.
// The MCP server is off by default.
func GetDefaultConfig() TunnelctlConfig {
	return TunnelctlConfig{
		Backend: BackendConfig{
			URL:            DefaultBackendURL,
			DialTimeout:    DefaultDialTimeout,
			CommandTimeout: DefaultCommandTimeout,
			Headers:        map[string]string{},
		},
		MCP: MCPConfig{
			Enabled: false,
			Host:    DefaultMCPHost,
			Port:    DefaultMCPPort,
		},
		UI: UIConfig{
			NoticeLimit: DefaultNoticeLimit,
		},
	}
}
