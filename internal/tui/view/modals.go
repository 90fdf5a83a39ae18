package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tunnelctl/internal/session"
	"tunnelctl/internal/tui/design"
	"tunnelctl/internal/tui/model"
)

func hint(key, text string) string {
	return design.KeyHintStyle.Render(key) + " " + design.TextSecondaryStyle.Render(text)
}

func hints(pairs ...string) string {
	parts := make([]string, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, hint(pairs[i], pairs[i+1]))
	}
	return strings.Join(parts, "  ")
}

func renderModal(style lipgloss.Style, width int, lines []string) string {
	w := modalWidth(width)
	box := style.Width(w - style.GetHorizontalBorderSize()).Render(strings.Join(lines, "\n"))
	return design.CenterHorizontal(width, box)
}

func renderRouteModal(m *model.Model, width int) string {
	neg := m.State.Negotiation
	inner := modalWidth(width) - design.ModalStyle.GetHorizontalFrameSize()

	if neg.Phase == session.NegotiationRerouting {
		lines := []string{
			design.TitleStyle.Render("Rerouting"),
			fmt.Sprintf("%s Searching for a route with %d hops...", m.Spinner.View(), neg.RequestedHops),
		}
		if neg.Previous != nil {
			lines = append(lines, design.DimStyle.Render(fmt.Sprintf("Previous route had %d hops", neg.Previous.HopCount())))
		}
		return renderModal(design.ModalStyle, width, lines)
	}

	p := neg.Proposal
	if p == nil {
		return ""
	}

	lines := []string{design.TitleStyle.Render(fmt.Sprintf("Route proposal (%d hops)", p.HopCount()))}
	for i, s := range p.Sections {
		name := Truncate(s.Name, inner-8)
		line := fmt.Sprintf("%2d. %s", i+1, name)
		if s.IsExitHop {
			line += " " + design.TextInfoStyle.Render(IconText(IconExit, "exit"))
		}
		lines = append(lines, line)
	}

	lines = append(lines, "",
		fmt.Sprintf("Inbound:  %s TON per MB", p.PriceInPerMB),
		fmt.Sprintf("Outbound: %s TON per MB", p.PriceOutPerMB),
	)
	if p.PriceWarning != "" {
		lines = append(lines, design.TextWarningStyle.Render(IconText(IconWarning, Truncate(p.PriceWarning, inner-3))))
	}
	lines = append(lines, "")

	switch {
	case neg.DecisionPending:
		lines = append(lines, m.Spinner.View()+" Sending decision...")
	case m.PickingReroute:
		lines = append(lines,
			fmt.Sprintf("Reroute to %s hops (1-%d)", design.SelectedStyle.Render(fmt.Sprintf("< %d >", m.RerouteHops)), neg.MaxNodes),
			hints("←/→", "change", "enter", "reroute", "esc", "back"),
		)
	default:
		lines = append(lines, hints("a", "accept", "r", "reroute", "c", "cancel"))
	}

	return renderModal(design.ModalStyle, width, lines)
}

func renderReinitModal(m *model.Model, width int) string {
	lines := []string{
		design.TitleStyle.Render(IconText(IconWarning, "Tunnel stalled")),
		"The tunnel stopped responding. Reinitialize it?",
		"",
	}
	if m.State.Reinit.AnswerPending {
		lines = append(lines, m.Spinner.View()+" Sending answer...")
	} else {
		lines = append(lines, hints("y", "reinitialize", "n", "keep", "esc", "dismiss"))
	}
	return renderModal(design.ModalWarningStyle, width, lines)
}

func renderPoolModal(m *model.Model, width int) string {
	flow := m.State.PoolFlow
	inner := modalWidth(width) - design.ModalStyle.GetHorizontalFrameSize()

	title := "Tunnel configuration"
	if flow.Origin == session.OriginPoolAttached {
		title = "Node pool attached"
	}
	lines := []string{design.TitleStyle.Render(IconText(IconGear, title))}

	if flow.Phase == session.FlowOpening {
		lines = append(lines, m.Spinner.View()+" Loading tunnel settings...")
		return renderModal(design.ModalStyle, width, lines)
	}

	if flow.PoolPath != "" {
		lines = append(lines, "Pool: "+Truncate(flow.PoolPath, inner-len("Pool: ")))
	}
	lines = append(lines,
		fmt.Sprintf("Hops: %s of %d", design.SelectedStyle.Render(fmt.Sprintf("< %d >", flow.Draft.SectionCount)), flow.MaxNodes))

	box := "[ ]"
	if flow.Draft.PaymentsEnabled {
		box = "[x]"
	}
	lines = append(lines, box+" Pay for tunnel traffic")

	if flow.Draft.PaymentsEnabled {
		switch {
		case flow.WalletLoading:
			lines = append(lines, m.Spinner.View()+" Loading wallet...")
		case flow.WalletAddr != "" && m.ShowWalletQR:
			lines = append(lines,
				renderWalletQR(flow.WalletAddr),
				design.TextSecondaryStyle.Render(model.WalletDepositHint),
			)
		case flow.WalletAddr != "":
			lines = append(lines,
				IconText(IconWallet, Truncate(flow.WalletAddr, inner-3)),
				design.TextSecondaryStyle.Render(model.WalletDepositHint),
			)
		}
	}
	lines = append(lines, "")

	if flow.Phase == session.FlowSaving {
		lines = append(lines, m.Spinner.View()+" Saving...")
		return renderModal(design.ModalStyle, width, lines)
	}

	pairs := []string{"←/→", "hops", "space", "pay"}
	if m.CopyWallet && flow.WalletAddr != "" && flow.Draft.PaymentsEnabled {
		pairs = append(pairs, "w", "copy wallet")
	}
	if flow.WalletAddr != "" && flow.Draft.PaymentsEnabled {
		pairs = append(pairs, "v", "QR")
	}
	pairs = append(pairs, "enter", "save", "esc", "cancel")
	lines = append(lines, hints(pairs...))

	return renderModal(design.ModalStyle, width, lines)
}

func renderResetConfirm(width int) string {
	lines := []string{
		design.TitleStyle.Render("Reset tunnel"),
		"Detach the node pool and clear the tunnel settings?",
		"",
		hints("y", "reset", "n", "keep"),
	}
	return renderModal(design.ModalWarningStyle, width, lines)
}
