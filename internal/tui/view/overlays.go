package view

import (
	"github.com/charmbracelet/lipgloss"

	"tunnelctl/internal/tui/design"
	"tunnelctl/internal/tui/model"
)

func renderHelpOverlay(m *model.Model) string {
	title := design.TitleStyle.Render("KEYBOARD SHORTCUTS")

	h := m.Help
	h.ShowAll = true
	h.Width = modalWidth(m.Width)
	content := lipgloss.JoinVertical(lipgloss.Left, title, h.FullHelpView(m.Keys.FullHelp()), "",
		design.DimStyle.Render("Press ? or esc to close"))

	container := design.ModalStyle.Render(content)
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, container)
}

func renderLogOverlay(m *model.Model, width, height int) string {
	title := design.LogPanelTitleStyle.Render(SafeIcon(IconScroll) + "Activity Log  (↑/↓ scroll  •  Esc close)")
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.LogViewport.View())
	return design.LogOverlayStyle.
		Width(width - design.LogOverlayStyle.GetHorizontalFrameSize()).
		Height(height - design.LogOverlayStyle.GetVerticalFrameSize()).
		Render(content)
}

// renderLogPanel renders the activity log under the dashboard.
func renderLogPanel(m *model.Model, width, height int) string {
	if height < 4 {
		return ""
	}
	title := design.LogPanelTitleStyle.Render(SafeIcon(IconScroll) + "Activity Log")
	content := lipgloss.JoinVertical(lipgloss.Left, title, m.LogViewport.View())
	return design.PanelStyle.
		Width(width - design.PanelStyle.GetHorizontalBorderSize()).
		MaxHeight(height).
		Render(content)
}

// LogViewportSize returns the viewport dimensions for the log pane in the
// given mode. The main view gives the log roughly a third of the screen.
func LogViewportSize(mode model.AppMode, width, height int) (int, int) {
	if mode == model.ModeLogOverlay {
		w := width - design.LogOverlayStyle.GetHorizontalFrameSize()
		h := height - design.LogOverlayStyle.GetVerticalFrameSize() - 1
		return max(w, 0), max(h, 0)
	}
	if height < model.MinHeightForMainLogView {
		return max(width-design.PanelStyle.GetHorizontalFrameSize(), 0), 0
	}
	return max(width-design.PanelStyle.GetHorizontalFrameSize(), 0), height/3 - design.PanelStyle.GetVerticalFrameSize() - 1
}
