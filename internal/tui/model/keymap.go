package model

import (
	"github.com/charmbracelet/bubbles/key"

	"tunnelctl/internal/session"
)

// KeyMap defines the keybindings for the application.
// Most keys only apply while their decision surface is shown.
type KeyMap struct {
	// Dashboard
	ToggleProxy key.Binding
	Configure   key.Binding
	AttachPool  key.Binding
	ResetPool   key.Binding

	// Route proposal
	Accept  key.Binding
	Cancel  key.Binding
	Reroute key.Binding

	// Reinit question and confirmations
	Yes key.Binding
	No  key.Binding

	// Pool configuration and reroute picker
	Increment      key.Binding
	Decrement      key.Binding
	TogglePayments key.Binding
	CopyWallet     key.Binding
	WalletQR       key.Binding
	Confirm        key.Binding
	Esc            key.Binding

	// General
	Up        key.Binding
	Down      key.Binding
	ToggleLog key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns a KeyMap with default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ToggleProxy: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start/stop proxy"),
		),
		Configure: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "configure tunnel"),
		),
		AttachPool: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "attach node pool"),
		),
		ResetPool: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reset tunnel"),
		),
		Accept: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "accept route"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel route"),
		),
		Reroute: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reroute"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
		Increment: key.NewBinding(
			key.WithKeys("+", "=", "right", "l"),
			key.WithHelp("→/+", "more hops"),
		),
		Decrement: key.NewBinding(
			key.WithKeys("-", "left", "h"),
			key.WithHelp("←/-", "fewer hops"),
		),
		TogglePayments: key.NewBinding(
			key.WithKeys(" ", "m"),
			key.WithHelp("space", "toggle payments"),
		),
		CopyWallet: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "copy wallet address"),
		),
		WalletQR: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "wallet QR code"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel/back"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "scroll down"),
		),
		ToggleLog: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "toggle log overlay"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
	}
}

// FullHelp returns bindings for the main help view.
// It's a slice of slices, where each inner slice is a column in the help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ToggleProxy, k.Configure, k.AttachPool, k.ResetPool},
		{k.Accept, k.Cancel, k.Reroute, k.Yes, k.No},
		{k.Increment, k.Decrement, k.TogglePayments, k.CopyWallet, k.WalletQR, k.Confirm, k.Esc},
		{k.Up, k.Down, k.ToggleLog, k.Help, k.Quit},
	}
}

// ShortHelp returns a minimal set of bindings for the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// ContextHelp returns the bindings that apply to what is on screen.
func (k KeyMap) ContextHelp(m *Model) []key.Binding {
	if m.ConfirmingReset {
		return []key.Binding{k.Yes, k.No}
	}
	switch m.State.Surface {
	case session.SurfaceNegotiating:
		if m.PickingReroute {
			return []key.Binding{k.Decrement, k.Increment, k.Confirm, k.Esc}
		}
		return []key.Binding{k.Accept, k.Reroute, k.Cancel}
	case session.SurfaceReinitializing:
		return []key.Binding{k.Yes, k.No, k.Esc}
	case session.SurfaceConfiguringPool:
		bindings := []key.Binding{k.Decrement, k.Increment, k.TogglePayments}
		if m.CopyWallet && m.State.PoolFlow.WalletAddr != "" {
			bindings = append(bindings, k.CopyWallet)
		}
		if m.State.PoolFlow.WalletAddr != "" {
			bindings = append(bindings, k.WalletQR)
		}
		return append(bindings, k.Confirm, k.Esc)
	default:
		return []key.Binding{k.ToggleProxy, k.Configure, k.AttachPool, k.ResetPool, k.ToggleLog, k.Help, k.Quit}
	}
}
