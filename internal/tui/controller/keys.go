package controller

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"tunnelctl/internal/session"
	"tunnelctl/internal/tui/model"
)

func handleKeyMsg(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	if key.Matches(msg, m.Keys.Quit) {
		m.CurrentAppMode = model.ModeQuitting
		m.QuittingMessage = "Shutting down..."
		m.Close()
		return m, tea.Quit
	}

	switch m.CurrentAppMode {
	case model.ModeHelpOverlay:
		if key.Matches(msg, m.Keys.Help, m.Keys.Esc) {
			m.CurrentAppMode = model.ModeMain
		}
		return m, nil
	case model.ModeLogOverlay:
		if key.Matches(msg, m.Keys.ToggleLog, m.Keys.Esc) {
			m.CurrentAppMode = model.ModeMain
			resizeLogViewport(m)
			return m, nil
		}
		var cmd tea.Cmd
		m.LogViewport, cmd = m.LogViewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.Keys.Help):
		m.CurrentAppMode = model.ModeHelpOverlay
		return m, nil
	case key.Matches(msg, m.Keys.ToggleLog):
		m.CurrentAppMode = model.ModeLogOverlay
		resizeLogViewport(m)
		return m, nil
	}

	if m.Coordinator == nil {
		return m, nil
	}

	if m.ConfirmingReset {
		return handleResetConfirmKeys(m, msg)
	}

	switch m.State.Surface {
	case session.SurfaceNegotiating:
		if m.PickingReroute {
			return handleReroutePickerKeys(m, msg)
		}
		return handleRouteKeys(m, msg)
	case session.SurfaceReinitializing:
		return handleReinitKeys(m, msg)
	case session.SurfaceConfiguringPool:
		return handlePoolKeys(m, msg)
	default:
		return handleDashboardKeys(m, msg)
	}
}

func handleDashboardKeys(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	c := m.Coordinator
	switch {
	case key.Matches(msg, m.Keys.ToggleProxy):
		return m, m.RunOperation("toggle proxy", c.ToggleProxy)
	case key.Matches(msg, m.Keys.Configure):
		return m, m.RunOperation("configure tunnel", c.ConfigureTunnel)
	case key.Matches(msg, m.Keys.AttachPool):
		return m, m.RunOperation("attach pool", c.AttachPool)
	case key.Matches(msg, m.Keys.ResetPool):
		m.ConfirmingReset = true
		return m, nil
	case key.Matches(msg, m.Keys.Up, m.Keys.Down):
		var cmd tea.Cmd
		m.LogViewport, cmd = m.LogViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func handleResetConfirmKeys(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Yes):
		m.ConfirmingReset = false
		return m, m.RunOperation("reset tunnel", m.Coordinator.ResetPool)
	case key.Matches(msg, m.Keys.No, m.Keys.Esc):
		m.ConfirmingReset = false
	}
	return m, nil
}

func handleRouteKeys(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	c := m.Coordinator
	switch {
	case key.Matches(msg, m.Keys.Accept):
		return m, m.RunOperation("accept route", c.AcceptRoute)
	case key.Matches(msg, m.Keys.Cancel, m.Keys.Esc):
		return m, m.RunOperation("cancel route", c.CancelRoute)
	case key.Matches(msg, m.Keys.Reroute):
		neg := m.State.Negotiation
		if neg.Phase != session.NegotiationAwaitingDecision || neg.Proposal == nil || neg.DecisionPending {
			return m, nil
		}
		m.PickingReroute = true
		m.RerouteHops = clampHops(neg.Proposal.HopCount(), neg.MaxNodes)
	}
	return m, nil
}

func handleReroutePickerKeys(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	maxNodes := m.State.Negotiation.MaxNodes
	switch {
	case key.Matches(msg, m.Keys.Increment):
		m.RerouteHops = clampHops(m.RerouteHops+1, maxNodes)
	case key.Matches(msg, m.Keys.Decrement):
		m.RerouteHops = clampHops(m.RerouteHops-1, maxNodes)
	case key.Matches(msg, m.Keys.Confirm):
		m.PickingReroute = false
		hops := m.RerouteHops
		c := m.Coordinator
		return m, m.RunOperation("reroute", func(ctx context.Context) error {
			return c.RerouteRoute(ctx, hops)
		})
	case key.Matches(msg, m.Keys.Esc):
		m.PickingReroute = false
	}
	return m, nil
}

func handleReinitKeys(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	c := m.Coordinator
	switch {
	case key.Matches(msg, m.Keys.Yes):
		return m, m.RunOperation("reinit", func(ctx context.Context) error {
			return c.AnswerReinit(ctx, true)
		})
	case key.Matches(msg, m.Keys.No):
		return m, m.RunOperation("reinit", func(ctx context.Context) error {
			return c.AnswerReinit(ctx, false)
		})
	case key.Matches(msg, m.Keys.Esc):
		return m, m.RunOperation("dismiss reinit", c.DismissReinit)
	}
	return m, nil
}

func handlePoolKeys(m *model.Model, msg tea.KeyMsg) (*model.Model, tea.Cmd) {
	c := m.Coordinator
	flow := m.State.PoolFlow
	switch {
	case key.Matches(msg, m.Keys.Increment):
		return m, m.RunOperation("increase hops", c.IncrementHops)
	case key.Matches(msg, m.Keys.Decrement):
		return m, m.RunOperation("decrease hops", c.DecrementHops)
	case key.Matches(msg, m.Keys.TogglePayments):
		enabled := !flow.Draft.PaymentsEnabled
		return m, m.RunOperation("toggle payments", func(ctx context.Context) error {
			return c.TogglePayments(ctx, enabled)
		})
	case key.Matches(msg, m.Keys.CopyWallet):
		if m.CopyWallet && flow.WalletAddr != "" {
			return m, model.CopyToClipboardCmd("wallet address", flow.WalletAddr)
		}
	case key.Matches(msg, m.Keys.WalletQR):
		if flow.WalletAddr != "" && flow.Draft.PaymentsEnabled {
			m.ShowWalletQR = !m.ShowWalletQR
		}
	case key.Matches(msg, m.Keys.Confirm):
		return m, m.RunOperation("save", c.SaveConfig)
	case key.Matches(msg, m.Keys.Esc):
		return m, m.RunOperation("cancel configuration", c.CancelConfig)
	}
	return m, nil
}

func clampHops(n, maxNodes int) int {
	if maxNodes > 0 && n > maxNodes {
		n = maxNodes
	}
	if n < 1 {
		n = 1
	}
	return n
}
