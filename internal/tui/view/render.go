package view

import (
	"github.com/charmbracelet/lipgloss"

	"tunnelctl/internal/session"
	"tunnelctl/internal/tui/design"
	"tunnelctl/internal/tui/model"
)

// Render renders the UI according to the current model state.
func Render(m *model.Model) string {
	switch m.CurrentAppMode {
	case model.ModeQuitting:
		return design.TextSecondaryStyle.Render(m.QuittingMessage)
	case model.ModeHelpOverlay:
		return renderHelpOverlay(m)
	case model.ModeLogOverlay:
		return renderLogOverlay(m, m.Width, m.Height)
	}

	if m.Width == 0 || m.Height == 0 {
		return design.TextSecondaryStyle.Render("Initializing... (waiting for window size)")
	}
	return renderMain(m)
}

func renderMain(m *model.Model) string {
	width := m.Width
	sections := []string{
		renderHeader(m, width),
		renderDashboard(m, width),
	}

	if modal := renderSurface(m, width); modal != "" {
		sections = append(sections, modal)
	}
	if notices := renderNotices(m, width); notices != "" {
		sections = append(sections, notices)
	}

	statusBar := renderStatusBar(m, width)
	body := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.Height >= model.MinHeightForMainLogView {
		remaining := m.Height - lipgloss.Height(body) - lipgloss.Height(statusBar)
		if panel := renderLogPanel(m, width, remaining); panel != "" {
			body = lipgloss.JoinVertical(lipgloss.Left, body, panel)
		}
	}

	gap := m.Height - lipgloss.Height(body) - lipgloss.Height(statusBar)
	if gap > 0 {
		body = lipgloss.NewStyle().Height(lipgloss.Height(body) + gap).Render(body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, statusBar)
}

// renderSurface renders the one decision surface that is currently shown.
// The reset confirmation only appears while no other surface is open.
func renderSurface(m *model.Model, width int) string {
	if m.ConfirmingReset && m.State.Surface == session.SurfaceNone {
		return renderResetConfirm(width)
	}
	switch m.State.Surface {
	case session.SurfaceNegotiating:
		return renderRouteModal(m, width)
	case session.SurfaceReinitializing:
		return renderReinitModal(m, width)
	case session.SurfaceConfiguringPool:
		return renderPoolModal(m, width)
	default:
		return ""
	}
}

func modalWidth(width int) int {
	w := width - 4
	if w > design.MaxModalWidth {
		w = design.MaxModalWidth
	}
	if w < design.MinModalWidth {
		w = design.MinModalWidth
	}
	return w
}
