package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tunnelctl/internal/reporting"
	"tunnelctl/internal/session"
	"tunnelctl/internal/tui/controller"
	"tunnelctl/internal/tui/design"
	"tunnelctl/internal/tui/model"
	"tunnelctl/pkg/logging"
)

// runCLIMode logs coordinator activity until interrupted. Decisions can
// only be made through the MCP tools in this mode.
func runCLIMode(ctx context.Context, cfg *Config, services *Services) error {
	logging.Info("CLI", "Running in no-TUI mode.")
	if services.MCPServer != nil {
		logging.Info("CLI", "MCP tools available at http://%s/sse", services.MCPServer.Addr())
	} else {
		logging.Info("CLI", "MCP server disabled; route and reinit prompts cannot be answered in this mode.")
	}
	logging.Info("CLI", "Press Ctrl+C to exit.")

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub := services.Coordinator.Updates(
		reporting.EventTypeStateChanged,
		reporting.EventTypeNotice,
		reporting.EventTypeBackendDisconnected,
	)
	defer services.Coordinator.Unsubscribe(sub)

	var mcpErrs <-chan error
	if services.MCPServer != nil {
		mcpErrs = services.MCPServer.Errors()
	}

	reporter := &cliReporter{}
	reporter.report(services.Coordinator.Snapshot())
	for {
		select {
		case <-sigCtx.Done():
			logging.Info("CLI", "--- Shutting down ---")
			return nil
		case err, ok := <-mcpErrs:
			if !ok {
				mcpErrs = nil
				continue
			}
			logging.Error("CLI", err, "MCP server failed")
			return err
		case ev, ok := <-sub.Channel:
			if !ok {
				logging.Info("CLI", "Coordinator stopped.")
				return nil
			}
			reporter.handle(ev)
		}
	}
}

// cliReporter logs the parts of each state change an operator cares about.
type cliReporter struct {
	last *session.State
}

func (r *cliReporter) handle(ev reporting.Event) {
	switch e := ev.(type) {
	case session.StateEvent:
		r.report(e.State)
	case session.NoticeEvent:
		if e.Notice.Retryable {
			logging.Warn("CLI", "%s", e.Notice)
		} else {
			logging.Error("CLI", nil, "%s", e.Notice)
		}
	default:
		if ev.Type() == reporting.EventTypeBackendDisconnected {
			logging.Error("CLI", nil, "Backend disconnected")
		}
	}
}

func (r *cliReporter) report(s session.State) {
	prev := r.last
	r.last = &s

	if prev == nil || prev.Proxy.Status != s.Proxy.Status || prev.Proxy.Detail != s.Proxy.Detail {
		line := "Proxy " + s.Proxy.Status.String()
		if s.Proxy.Detail != "" {
			line += " (" + s.Proxy.Detail + ")"
		}
		logging.Info("CLI", "%s", line)
	}
	if s.Proxy.TunnelAddr != "" && (prev == nil || prev.Proxy.TunnelAddr != s.Proxy.TunnelAddr || prev.Proxy.Paid != s.Proxy.Paid) {
		logging.Info("CLI", "Tunnel %s, paid %s TON", s.Proxy.TunnelAddr, s.Proxy.Paid)
	}

	if p := s.Negotiation.Proposal; p != nil && (prev == nil || prev.Negotiation.Proposal == nil || prev.Negotiation.Proposal.ID != p.ID) {
		logging.Info("CLI", "Route proposal %s", describeProposal(p))
		if p.PriceWarning != "" {
			logging.Warn("CLI", "Route proposal %s: %s", p.ID, p.PriceWarning)
		}
	}
	if prev != nil && prev.Negotiation.Resolved != s.Negotiation.Resolved {
		logging.Info("CLI", "Route %s", s.Negotiation.LastOutcome)
	}

	if prev == nil || prev.Surface != s.Surface {
		logging.Debug("CLI", "Surface %s", s.Surface)
		if s.Surface == session.SurfaceReinitializing {
			logging.Warn("CLI", "Tunnel stalled; backend asks to reinitialize")
		}
	}
	if prev != nil && prev.Committed != s.Committed {
		logging.Info("CLI", "Tunnel settings: %d hops, payments %t, pool %q",
			s.Committed.SectionCount, s.Committed.PaymentsEnabled, s.Committed.PoolPath)
	}
}

func describeProposal(p *session.RouteProposal) string {
	names := make([]string, 0, len(p.Sections))
	for _, s := range p.Sections {
		name := s.Name
		if s.IsExitHop {
			name += " (exit)"
		}
		names = append(names, name)
	}
	return fmt.Sprintf("%s: %d hops [%s], in %s TON/MB, out %s TON/MB",
		p.ID, p.HopCount(), strings.Join(names, " -> "), p.PriceInPerMB, p.PriceOutPerMB)
}

// runTUIMode executes the interactive terminal UI mode
func runTUIMode(ctx context.Context, cfg *Config, services *Services) error {
	logging.Info("CLI", "Starting TUI mode...")

	design.Initialize(true)

	logLevel := logging.LevelInfo
	if cfg.Debug {
		logLevel = logging.LevelDebug
	}
	logChan := logging.InitForTUI(logLevel)
	defer func() {
		logging.CloseTUIChannel()
		logging.InitForCLI(logLevel, os.Stdout)
	}()

	tc := cfg.TunnelctlConfig
	p := controller.NewProgram(model.TUIConfig{
		DebugMode:   cfg.Debug,
		CopyWallet:  tc.UI.CopyWallet(),
		BackendURL:  tc.Backend.URL,
		Coordinator: services.Coordinator,
	}, logChan)

	// Quit the program when the surrounding context ends.
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	if _, err := p.Run(); err != nil {
		logging.Error("TUI-Lifecycle", err, "Error running TUI program")
		return err
	}
	logging.Info("TUI-Lifecycle", "TUI exited.")
	return nil
}
