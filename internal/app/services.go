package app

import (
	"context"
	"fmt"

	"tunnelctl/internal/backend"
	"tunnelctl/internal/channel"
	"tunnelctl/internal/config"
	"tunnelctl/internal/mcpserver"
	"tunnelctl/internal/reporting"
	"tunnelctl/internal/session"
	"tunnelctl/internal/tui/model"
	"tunnelctl/pkg/logging"
)

var (
	_ mcpserver.Controller = (*session.Coordinator)(nil)
	_ model.Coordinator    = (*session.Coordinator)(nil)
)

// Services holds the connection and everything built on top of it.
type Services struct {
	Channel     channel.NotificationChannel
	Backend     *backend.Client
	Bus         reporting.EventBus
	Coordinator *session.Coordinator
	// MCPServer is nil unless the MCP tool server is enabled.
	MCPServer *mcpserver.Server
}

// dialBackend opens the notification channel. Tests replace it.
var dialBackend = func(ctx context.Context, cfg config.BackendConfig) (channel.NotificationChannel, error) {
	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	return channel.Dial(dialCtx, cfg.URL, channel.DialOptions{
		HandshakeTimeout: cfg.DialTimeout,
		Headers:          cfg.Headers,
	})
}

// InitializeServices connects to the backend and wires the coordinator.
func InitializeServices(ctx context.Context, cfg *Config) (*Services, error) {
	if cfg.TunnelctlConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	tc := cfg.TunnelctlConfig

	ch, err := dialBackend(ctx, tc.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to backend: %w", err)
	}
	return newServices(ch, cfg), nil
}

func newServices(ch channel.NotificationChannel, cfg *Config) *Services {
	tc := cfg.TunnelctlConfig

	client := backend.NewClient(ch)
	bus := reporting.NewEventBus()
	coord := session.New(client, session.Options{
		CommandTimeout: tc.Backend.CommandTimeout,
		NoticeLimit:    tc.UI.NoticeLimit,
		Bus:            bus,
	})

	s := &Services{
		Channel:     ch,
		Backend:     client,
		Bus:         bus,
		Coordinator: coord,
	}
	if tc.MCP.Enabled {
		s.MCPServer = mcpserver.NewServer(tc.MCP, cfg.Version, coord)
	}
	return s
}

// Close tears down the backend connection.
func (s *Services) Close() {
	if s.Channel != nil {
		if err := s.Channel.Close(); err != nil {
			logging.Debug("Bootstrap", "Closing backend channel: %v", err)
		}
	}
}
