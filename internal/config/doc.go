// Package config provides configuration management for tunnelctl.
//
// Configuration is layered. Later sources override earlier ones:
//
//  1. Defaults compiled into the binary (see GetDefaultConfig).
//  2. User configuration (~/.config/tunnelctl/config.yaml).
//  3. Project configuration (./.tunnelctl/config.yaml).
//
// A single file can be used instead of the layers with LoadConfigFromPath.
//
// Example:
//
//	backend:
//	  url: ws://127.0.0.1:8091/events
//	  dialTimeout: 5s
//	  commandTimeout: 10s
//	  headers:
//	    Authorization: "Bearer ..."
//	mcp:
//	  enabled: true
//	  host: localhost
//	  port: 8092
//	ui:
//	  noticeLimit: 20
//	  copyWalletToClipboard: true
//
// Tunnel settings themselves (hop count, payments, pool path) are owned and
// persisted by the tunnel backend and are not part of this file.
package config
