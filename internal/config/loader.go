package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/tunnelctl"
	projectConfigDir = ".tunnelctl"
	configFileName   = "config.yaml"
)

// LoadConfig loads the tunnelctl configuration by layering default, user, and project settings.
func LoadConfig() (TunnelctlConfig, error) {
	config := GetDefaultConfig()

	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		config, err = overlayIfExists(config, userConfigPath)
		if err != nil {
			return TunnelctlConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
		}
	}

	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		config, err = overlayIfExists(config, projectConfigPath)
		if err != nil {
			return TunnelctlConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
		}
	}

	if err := Validate(config); err != nil {
		return TunnelctlConfig{}, err
	}
	return config, nil
}

// LoadConfigFromPath loads a single configuration file on top of the defaults,
// skipping the user and project layers.
func LoadConfigFromPath(path string) (TunnelctlConfig, error) {
	fileConfig, err := loadConfigFromFile(path)
	if err != nil {
		return TunnelctlConfig{}, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	config := mergeConfigs(GetDefaultConfig(), fileConfig)
	if err := Validate(config); err != nil {
		return TunnelctlConfig{}, err
	}
	return config, nil
}

// Validate checks the merged configuration for values the application cannot run with.
func Validate(cfg TunnelctlConfig) error {
	u, err := url.Parse(cfg.Backend.URL)
	if err != nil {
		return fmt.Errorf("invalid backend url %q: %w", cfg.Backend.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid backend url %q: scheme must be ws or wss", cfg.Backend.URL)
	}
	if cfg.Backend.CommandTimeout <= 0 {
		return fmt.Errorf("backend.commandTimeout must be positive, got %s", cfg.Backend.CommandTimeout)
	}
	if cfg.MCP.Enabled && (cfg.MCP.Port <= 0 || cfg.MCP.Port > 65535) {
		return fmt.Errorf("mcp.port %d out of range", cfg.MCP.Port)
	}
	return nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

func overlayIfExists(base TunnelctlConfig, path string) (TunnelctlConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}
	overlay, err := loadConfigFromFile(path)
	if err != nil {
		return TunnelctlConfig{}, err
	}
	return mergeConfigs(base, overlay), nil
}

// loadConfigFromFile loads a TunnelctlConfig from a YAML file.
func loadConfigFromFile(filePath string) (TunnelctlConfig, error) {
	var config TunnelctlConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return TunnelctlConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return TunnelctlConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
// Zero values in the overlay leave the base untouched.
func mergeConfigs(base, overlay TunnelctlConfig) TunnelctlConfig {
	merged := base

	if overlay.Backend.URL != "" {
		merged.Backend.URL = overlay.Backend.URL
	}
	if overlay.Backend.DialTimeout != 0 {
		merged.Backend.DialTimeout = overlay.Backend.DialTimeout
	}
	if overlay.Backend.CommandTimeout != 0 {
		merged.Backend.CommandTimeout = overlay.Backend.CommandTimeout
	}
	if len(overlay.Backend.Headers) > 0 {
		headers := make(map[string]string, len(base.Backend.Headers)+len(overlay.Backend.Headers))
		for k, v := range base.Backend.Headers {
			headers[k] = v
		}
		for k, v := range overlay.Backend.Headers {
			headers[k] = v
		}
		merged.Backend.Headers = headers
	}

	// enabled can only be switched on by a later layer
	if overlay.MCP.Enabled {
		merged.MCP.Enabled = true
	}
	if overlay.MCP.Host != "" {
		merged.MCP.Host = overlay.MCP.Host
	}
	if overlay.MCP.Port != 0 {
		merged.MCP.Port = overlay.MCP.Port
	}

	if overlay.UI.NoticeLimit != 0 {
		merged.UI.NoticeLimit = overlay.UI.NoticeLimit
	}
	if overlay.UI.CopyWalletToClipboard != nil {
		v := *overlay.UI.CopyWalletToClipboard
		merged.UI.CopyWalletToClipboard = &v
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
