package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tunnelctl/internal/app"
)

// connectOptions holds the flags of the connect command.
type connectOptions struct {
	noTUI      bool
	debug      bool
	configPath string
	backendURL string
	mcp        bool
	mcpPort    int
}

func newConnectCmd() *cobra.Command {
	opts := &connectOptions{}

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to the tunnel backend with an interactive TUI or CLI mode.",
		Long: `Connects to the tunnel backend's notification channel and runs the session
coordinator. It can run in two modes:

1. Interactive TUI Mode (default):
   - Shows the proxy status, the committed tunnel settings and recent failures.
   - Presents route proposals, reinitialization requests and the node pool
     configuration as they arrive, one at a time.

2. Non-TUI / CLI Mode (using --no-tui flag):
   - Logs proxy status changes, route proposals and failures to the console.
   - Decisions can be made through the MCP tools (--mcp) while it runs.
   - Runs until interrupted (e.g., Ctrl+C).

Configuration:
  tunnelctl layers ~/.config/tunnelctl/config.yaml and ./.tunnelctl/config.yaml
  over its defaults, or reads a single file given with --config. Flags override
  file values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConnect(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI and log activity to the console")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Load configuration from this file only")
	cmd.Flags().StringVar(&opts.backendURL, "backend-url", "", "Backend WebSocket URL (overrides backend.url)")
	cmd.Flags().BoolVar(&opts.mcp, "mcp", false, "Expose coordinator operations as MCP tools over SSE")
	cmd.Flags().IntVar(&opts.mcpPort, "mcp-port", 0, "Port for the MCP server (overrides mcp.port)")

	return cmd
}

// buildAppConfig turns the flags into the application configuration.
func buildAppConfig(opts *connectOptions) *app.Config {
	cfg := app.NewConfig(opts.noTUI, opts.debug, opts.configPath)
	cfg.BackendURL = opts.backendURL
	cfg.EnableMCP = opts.mcp
	cfg.MCPPort = opts.mcpPort
	cfg.Version = rootCmd.Version
	return cfg
}

func runConnect(cmd *cobra.Command, opts *connectOptions) error {
	application, err := app.NewApplication(buildAppConfig(opts))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}
