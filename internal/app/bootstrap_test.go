package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunnelctl/internal/channel"
	"tunnelctl/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewApplication_FromPath(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: ws://10.0.0.5:9000/events
  commandTimeout: 3s
ui:
  noticeLimit: 7
`)
	cfg := NewConfig(true, false, path)
	app, err := NewApplication(cfg)
	require.NoError(t, err)
	require.NotNil(t, app)

	require.NotNil(t, cfg.TunnelctlConfig)
	assert.Equal(t, "ws://10.0.0.5:9000/events", cfg.TunnelctlConfig.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.TunnelctlConfig.Backend.CommandTimeout)
	assert.Equal(t, 7, cfg.TunnelctlConfig.UI.NoticeLimit)
	assert.Equal(t, config.DefaultDialTimeout, cfg.TunnelctlConfig.Backend.DialTimeout)
}

func TestNewApplication_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := NewApplication(NewConfig(true, false, filepath.Join(t.TempDir(), "nope.yaml")))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration from path")
	})

	t.Run("flag override fails validation", func(t *testing.T) {
		cfg := NewConfig(true, false, writeConfig(t, "ui:\n  noticeLimit: 3\n"))
		cfg.BackendURL = "http://not-a-websocket"
		_, err := NewApplication(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestInitializeServices(t *testing.T) {
	orig := dialBackend
	t.Cleanup(func() { dialBackend = orig })

	conn, peer := channel.NewPipe()
	defer peer.Close()

	var dialed config.BackendConfig
	dialBackend = func(ctx context.Context, cfg config.BackendConfig) (channel.NotificationChannel, error) {
		dialed = cfg
		return conn, nil
	}

	tc := config.GetDefaultConfig()
	tc.MCP.Enabled = true
	cfg := &Config{TunnelctlConfig: &tc, Version: "1.2.3"}

	services, err := InitializeServices(context.Background(), cfg)
	require.NoError(t, err)
	defer services.Close()

	assert.Equal(t, config.DefaultBackendURL, dialed.URL)
	assert.NotNil(t, services.Coordinator)
	assert.NotNil(t, services.Backend)
	require.NotNil(t, services.MCPServer)
	assert.Equal(t, "localhost:8092", services.MCPServer.Addr())
}

func TestInitializeServices_DialFailure(t *testing.T) {
	orig := dialBackend
	t.Cleanup(func() { dialBackend = orig })
	dialBackend = func(ctx context.Context, cfg config.BackendConfig) (channel.NotificationChannel, error) {
		return nil, assert.AnError
	}

	tc := config.GetDefaultConfig()
	_, err := InitializeServices(context.Background(), &Config{TunnelctlConfig: &tc})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	_, err = InitializeServices(context.Background(), &Config{})
	assert.Error(t, err)
}

// answerCalls replies to every call frame until ctx ends.
func answerCalls(ctx context.Context, peer *channel.Peer) {
	for {
		f, err := peer.Next(ctx)
		if err != nil {
			return
		}
		if f.Kind != channel.KindCall {
			continue
		}
		var result any
		switch f.Name {
		case "GetMaxHops":
			result = 5
		case "GetTunnelEnabled":
			result = false
		case "GetConfig":
			result = json.RawMessage(`{"TunnelConfig":{"TunnelSectionsNum":2,"PaymentsEnabled":false,"NodesPoolConfigPath":""}}`)
		}
		_ = peer.Reply(ctx, f.ID, result, "")
	}
}

func TestRunWith_CLIMode(t *testing.T) {
	logs := captureLogs(t)

	conn, peer := channel.NewPipe()
	defer peer.Close()

	tc := config.GetDefaultConfig()
	tc.Backend.CommandTimeout = 200 * time.Millisecond
	cfg := &Config{NoTUI: true, TunnelctlConfig: &tc}
	services := newServices(conn, cfg)
	defer services.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go answerCalls(ctx, peer)

	done := make(chan error, 1)
	go func() {
		done <- (&Application{config: cfg}).runWith(ctx, services)
	}()

	require.NoError(t, peer.Push(ctx, "statusUpdate", "ready", ""))
	require.Eventually(t, func() bool {
		return services.Coordinator.Snapshot().Proxy.Status.String() == "ready"
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return logs.contains("Proxy ready")
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runWith did not return after cancellation")
	}
	<-services.Coordinator.Done()
}
