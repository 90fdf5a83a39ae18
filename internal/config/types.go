package config

import (
	"time"
)

// TunnelctlConfig is the top-level configuration structure for tunnelctl.
type TunnelctlConfig struct {
	Backend BackendConfig `yaml:"backend"`
	MCP     MCPConfig     `yaml:"mcp"`
	UI      UIConfig      `yaml:"ui"`
}

// BackendConfig describes how to reach the tunnel backend's notification channel.
type BackendConfig struct {
	URL            string            `yaml:"url,omitempty"`            // WebSocket endpoint, e.g. ws://127.0.0.1:8091/events
	DialTimeout    time.Duration     `yaml:"dialTimeout,omitempty"`    // How long to wait for the initial handshake
	CommandTimeout time.Duration     `yaml:"commandTimeout,omitempty"` // Delivery timeout for a single backend command
	Headers        map[string]string `yaml:"headers,omitempty"`        // Extra handshake headers (auth tokens)
}

// MCPConfig controls the MCP tool server that exposes coordinator operations.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// UIConfig holds presentation preferences shared by the TUI and CLI modes.
type UIConfig struct {
	NoticeLimit           int   `yaml:"noticeLimit,omitempty"`
	CopyWalletToClipboard *bool `yaml:"copyWalletToClipboard,omitempty"`
}

// CopyWallet reports whether the wallet address may be copied to the clipboard.
func (u UIConfig) CopyWallet() bool {
	return u.CopyWalletToClipboard == nil || *u.CopyWalletToClipboard
}
