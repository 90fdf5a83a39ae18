package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tunnelctl/internal/session"
	"tunnelctl/internal/tui/design"
	"tunnelctl/internal/tui/model"
)

// maxVisibleNotices bounds the notices shown under the dashboard.
const maxVisibleNotices = 3

func renderHeader(m *model.Model, width int) string {
	conn := design.TextErrorStyle.Render(IconText(IconCross, "disconnected"))
	if m.State.Connected {
		conn = design.TextSuccessStyle.Render(IconText(IconLink, "connected"))
	}

	title := "tunnelctl"
	if m.BackendURL != "" {
		title += "  " + design.TextSecondaryStyle.Render(m.BackendURL)
	}
	if m.DebugMode {
		title += "  " + design.TextWarningStyle.Render("[debug]")
	}

	left := lipgloss.NewStyle().Bold(true).Render(title)
	space := width - lipgloss.Width(left) - lipgloss.Width(conn) - design.HeaderStyle.GetHorizontalFrameSize()
	if space < 1 {
		space = 1
	}
	return design.HeaderStyle.Width(width).Render(left + strings.Repeat(" ", space) + conn)
}

func renderDashboard(m *model.Model, width int) string {
	// Two panels side by side, each with its own border.
	half := width / 2
	proxy := renderProxyPanel(m, half)
	tunnel := renderTunnelPanel(m, width-half)

	h := lipgloss.Height(proxy)
	if th := lipgloss.Height(tunnel); th > h {
		h = th
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Height(h).Render(proxy),
		lipgloss.NewStyle().Height(h).Render(tunnel),
	)
}

func renderProxyPanel(m *model.Model, width int) string {
	p := m.State.Proxy
	status := p.Status.String()

	var icon string
	switch p.Status {
	case session.StatusReady:
		icon = IconPlay
	case session.StatusLoading:
		icon = IconHourglass
	case session.StatusError:
		icon = IconWarning
	default:
		icon = IconStop
	}

	statusLine := design.GetStateStyle(status).Render(IconText(icon, strings.ToUpper(status[:1])+status[1:]))
	if p.Status == session.StatusLoading {
		statusLine = m.Spinner.View() + " " + statusLine
	}

	lines := []string{design.TitleStyle.Render("Proxy"), statusLine}
	inner := width - design.PanelStyle.GetHorizontalFrameSize()

	if p.Detail != "" {
		style := design.TextSecondaryStyle
		if p.Status == session.StatusError {
			style = design.TextErrorStyle
		}
		lines = append(lines, style.Render(Truncate(p.Detail, inner)))
	}
	if p.Status == session.StatusLoading && p.Progress != "" {
		lines = append(lines, design.DimStyle.Render(Truncate(p.Progress, inner)))
	}
	if p.ListenAddr != "" {
		lines = append(lines, fmt.Sprintf("Listen: %s", p.ListenAddr))
	}
	if p.TunnelAddr != "" {
		lines = append(lines, fmt.Sprintf("Tunnel: %s", p.TunnelAddr))
	}
	if p.Paid != "" {
		lines = append(lines, fmt.Sprintf("Paid: %s TON", p.Paid))
	}
	if p.Locked {
		lines = append(lines, design.DimStyle.Render("Start/stop locked"))
	}

	return design.PanelStyle.Width(width - design.PanelStyle.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

func renderTunnelPanel(m *model.Model, width int) string {
	s := m.State
	inner := width - design.PanelStyle.GetHorizontalFrameSize()

	enabled := design.TextSecondaryStyle.Render("Tunnel disabled")
	if s.TunnelEnabled {
		enabled = design.TextSuccessStyle.Render(IconText(IconCheck, "Tunnel enabled"))
	}

	lines := []string{design.TitleStyle.Render("Tunnel"), enabled}
	lines = append(lines, fmt.Sprintf("Hops: %s", hopsText(s.Committed.SectionCount, s.MaxNodes)))

	payments := "off"
	if s.Committed.PaymentsEnabled {
		payments = "on"
	}
	lines = append(lines, fmt.Sprintf("Payments: %s", payments))

	pool := design.DimStyle.Render("no node pool attached")
	if s.Committed.PoolPath != "" {
		pool = Truncate(s.Committed.PoolPath, inner-len("Pool: "))
	}
	lines = append(lines, "Pool: "+pool)

	if s.Negotiation.Resolved > 0 && s.Negotiation.LastOutcome != "" {
		lines = append(lines, design.DimStyle.Render(fmt.Sprintf("Last route: %s", s.Negotiation.LastOutcome)))
	}

	return design.PanelStyle.Width(width - design.PanelStyle.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

func hopsText(hops, maxNodes int) string {
	if hops <= 0 {
		return "not set"
	}
	if maxNodes > 0 {
		return fmt.Sprintf("%d of %d", hops, maxNodes)
	}
	return fmt.Sprintf("%d", hops)
}

// renderNotices shows the newest notices first.
func renderNotices(m *model.Model, width int) string {
	notices := m.State.Notices
	if len(notices) == 0 {
		return ""
	}

	inner := width - design.PanelStyle.GetHorizontalFrameSize()
	lines := make([]string, 0, maxVisibleNotices)
	for i := len(notices) - 1; i >= 0 && len(lines) < maxVisibleNotices; i-- {
		n := notices[i]
		text := fmt.Sprintf("%s %s", n.At.Format("15:04:05"), n.String())
		if n.Retryable {
			lines = append(lines, design.TextWarningStyle.Render(Truncate(IconText(IconWarning, text), inner)))
		} else {
			lines = append(lines, design.TextErrorStyle.Render(Truncate(IconText(IconCross, text), inner)))
		}
	}
	return design.PanelStyle.Width(width - design.PanelStyle.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
}

func renderStatusBar(m *model.Model, width int) string {
	if m.StatusBarMessage != "" {
		style := design.StatusBarInfoStyle
		switch m.StatusBarMessageType {
		case model.StatusBarSuccess:
			style = design.StatusBarSuccessStyle
		case model.StatusBarError:
			style = design.StatusBarErrorStyle
		case model.StatusBarWarning:
			style = design.StatusBarWarningStyle
		}
		return style.Width(width).Render(Truncate(m.StatusBarMessage, width-style.GetHorizontalFrameSize()))
	}

	h := m.Help
	h.Width = width - design.StatusBarStyle.GetHorizontalFrameSize()
	return design.StatusBarStyle.Width(width).Render(h.ShortHelpView(m.Keys.ContextHelp(m)))
}
