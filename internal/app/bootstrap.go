package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"tunnelctl/internal/config"
	"tunnelctl/pkg/logging"
)

const mcpStopTimeout = 5 * time.Second

// Application is the main application structure that bootstraps and runs tunnelctl
type Application struct {
	config *Config
}

// NewApplication loads the configuration and prepares logging.
func NewApplication(cfg *Config) (*Application, error) {
	appLogLevel := logging.LevelInfo
	if cfg.Debug {
		appLogLevel = logging.LevelDebug
	}

	// Replaced by the channel logger in TUI mode.
	logging.InitForCLI(appLogLevel, os.Stdout)

	var tunnelCfg config.TunnelctlConfig
	var err error

	if cfg.ConfigPath != "" {
		tunnelCfg, err = config.LoadConfigFromPath(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load configuration from path %s: %w", cfg.ConfigPath, err)
		}
		logging.Info("Bootstrap", "Loaded configuration from custom path: %s", cfg.ConfigPath)
	} else {
		tunnelCfg, err = config.LoadConfig()
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration")
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		logging.Debug("Bootstrap", "Loaded configuration using layered approach")
	}

	cfg.applyOverrides(&tunnelCfg)
	if err := config.Validate(tunnelCfg); err != nil {
		logging.Error("Bootstrap", err, "Invalid configuration after applying flags")
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.TunnelctlConfig = &tunnelCfg

	return &Application{config: cfg}, nil
}

// Run connects to the backend, runs the coordinator and the selected
// front end until the front end exits or ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	services, err := InitializeServices(ctx, a.config)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return err
	}
	defer services.Close()

	return a.runWith(ctx, services)
}

func (a *Application) runWith(ctx context.Context, services *Services) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	coordErr := make(chan error, 1)
	go func() {
		coordErr <- services.Coordinator.Run(runCtx)
	}()

	if services.MCPServer != nil {
		if err := services.MCPServer.Start(runCtx); err != nil {
			cancel()
			<-coordErr
			return fmt.Errorf("failed to start mcp server: %w", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), mcpStopTimeout)
			defer stopCancel()
			if err := services.MCPServer.Stop(stopCtx); err != nil {
				logging.Warn("Bootstrap", "MCP server shutdown: %v", err)
			}
		}()
	}

	var modeErr error
	if a.config.NoTUI {
		modeErr = runCLIMode(runCtx, a.config, services)
	} else {
		modeErr = runTUIMode(runCtx, a.config, services)
	}

	cancel()
	if err := <-coordErr; err != nil && modeErr == nil {
		modeErr = err
	}
	return modeErr
}
