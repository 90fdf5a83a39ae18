package view

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tunnelctl/internal/session"
	"tunnelctl/internal/tui/model"
)

func newTestModel(state session.State) *model.Model {
	m := model.InitialModel(model.TUIConfig{BackendURL: "ws://localhost:9000"}, nil)
	m.State = state
	m.Width = 120
	m.Height = 40
	return m
}

func TestRender_Modes(t *testing.T) {
	m := newTestModel(session.State{})

	m.Width, m.Height = 0, 0
	assert.Contains(t, Render(m), "Initializing")

	m.Width, m.Height = 120, 40
	m.CurrentAppMode = model.ModeQuitting
	m.QuittingMessage = "Shutting down..."
	assert.Equal(t, "Shutting down...", strings.TrimSpace(Render(m)))

	m.CurrentAppMode = model.ModeHelpOverlay
	assert.Contains(t, Render(m), "KEYBOARD SHORTCUTS")

	m.CurrentAppMode = model.ModeLogOverlay
	assert.Contains(t, Render(m), "Activity Log")
}

func TestRender_Dashboard(t *testing.T) {
	m := newTestModel(session.State{
		Connected: true,
		Proxy: session.ProxyView{
			Status:     session.StatusReady,
			ListenAddr: "127.0.0.1:8080",
			TunnelAddr: "10.0.0.1:443",
			Paid:       "0.25",
		},
		TunnelEnabled: true,
		Committed:     session.TunnelSettings{SectionCount: 3, PaymentsEnabled: true, PoolPath: "/pools/main.json"},
		MaxNodes:      5,
	})

	out := Render(m)
	assert.Contains(t, out, "tunnelctl")
	assert.Contains(t, out, "connected")
	assert.Contains(t, out, "Ready")
	assert.Contains(t, out, "Tunnel: 10.0.0.1:443")
	assert.Contains(t, out, "Paid: 0.25 TON")
	assert.Contains(t, out, "Hops: 3 of 5")
	assert.Contains(t, out, "Payments: on")
	assert.Contains(t, out, "/pools/main.json")
}

func TestRender_ProxyErrorAndLock(t *testing.T) {
	m := newTestModel(session.State{
		Proxy: session.ProxyView{Status: session.StatusError, Detail: "dial failed", Locked: true},
	})
	out := Render(m)
	assert.Contains(t, out, "Error")
	assert.Contains(t, out, "dial failed")
	assert.Contains(t, out, "locked")
	assert.Contains(t, out, "disconnected")
}

func TestRender_RouteProposal(t *testing.T) {
	state := session.State{
		Surface: session.SurfaceNegotiating,
		Negotiation: session.NegotiationView{
			Phase:    session.NegotiationAwaitingDecision,
			MaxNodes: 5,
			Proposal: &session.RouteProposal{
				ID:            "p-1",
				Sections:      []session.Section{{Name: "alpha"}, {Name: "omega", IsExitHop: true}},
				PriceInPerMB:  "0.01",
				PriceOutPerMB: "0.02",
				PriceWarning:  "inbound price is not a number",
			},
		},
	}

	t.Run("awaiting decision", func(t *testing.T) {
		out := Render(newTestModel(state))
		assert.Contains(t, out, "Route proposal (2 hops)")
		assert.Contains(t, out, " 1. alpha")
		assert.Contains(t, out, " 2. omega")
		assert.Contains(t, out, "exit")
		assert.Contains(t, out, "0.01 TON per MB")
		assert.Contains(t, out, "0.02 TON per MB")
		assert.Contains(t, out, "inbound price is not a number")
		assert.Contains(t, out, "accept")
	})

	t.Run("reroute picker", func(t *testing.T) {
		m := newTestModel(state)
		m.PickingReroute = true
		m.RerouteHops = 4
		assert.Contains(t, Render(m), "Reroute to < 4 > hops (1-5)")
	})

	t.Run("decision pending", func(t *testing.T) {
		s := state
		s.Negotiation.DecisionPending = true
		out := Render(newTestModel(s))
		assert.Contains(t, out, "Sending decision")
		assert.NotContains(t, out, "a accept")
	})

	t.Run("rerouting", func(t *testing.T) {
		s := state
		s.Negotiation.Phase = session.NegotiationRerouting
		s.Negotiation.Previous = s.Negotiation.Proposal
		s.Negotiation.Proposal = nil
		s.Negotiation.RequestedHops = 3
		out := Render(newTestModel(s))
		assert.Contains(t, out, "route with 3 hops")
		assert.Contains(t, out, "Previous route had 2 hops")
	})
}

func TestRender_Reinit(t *testing.T) {
	state := session.State{
		Surface: session.SurfaceReinitializing,
		Reinit:  session.ReinitView{Phase: session.ReinitAwaitingConfirmation},
	}
	out := Render(newTestModel(state))
	assert.Contains(t, out, "Reinitialize it?")
	assert.Contains(t, out, "reinitialize")

	state.Reinit.AnswerPending = true
	assert.Contains(t, Render(newTestModel(state)), "Sending answer")
}

func TestRender_PoolFlow(t *testing.T) {
	flow := session.PoolFlowView{
		Phase:    session.FlowEditing,
		Origin:   session.OriginPoolAttached,
		PoolPath: "/pools/new.json",
		MaxNodes: 6,
		Draft:    session.TunnelSettings{SectionCount: 2, PaymentsEnabled: true},
	}

	t.Run("opening", func(t *testing.T) {
		f := flow
		f.Phase = session.FlowOpening
		out := Render(newTestModel(session.State{Surface: session.SurfaceConfiguringPool, PoolFlow: f}))
		assert.Contains(t, out, "Loading tunnel settings")
	})

	t.Run("editing with wallet", func(t *testing.T) {
		f := flow
		f.WalletAddr = "EQwallet"
		m := newTestModel(session.State{Surface: session.SurfaceConfiguringPool, PoolFlow: f})
		m.CopyWallet = true
		out := Render(m)
		assert.Contains(t, out, "Node pool attached")
		assert.Contains(t, out, "/pools/new.json")
		assert.Contains(t, out, "Hops: < 2 > of 6")
		assert.Contains(t, out, "[x] Pay for tunnel traffic")
		assert.Contains(t, out, "EQwallet")
		assert.Contains(t, out, model.WalletDepositHint)
		assert.Contains(t, out, "copy wallet")
	})

	t.Run("wallet QR code", func(t *testing.T) {
		f := flow
		f.WalletAddr = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"
		m := newTestModel(session.State{Surface: session.SurfaceConfiguringPool, PoolFlow: f})
		assert.Contains(t, Render(m), "v QR")
		assert.False(t, strings.ContainsAny(Render(m), "▀▄"))

		m.ShowWalletQR = true
		out := Render(m)
		assert.True(t, strings.ContainsAny(out, "▀▄"), "half-block QR rows")
		assert.NotContains(t, out, f.WalletAddr, "the QR code replaces the address line")
		assert.Contains(t, out, model.WalletDepositHint)
	})

	t.Run("wallet loading", func(t *testing.T) {
		f := flow
		f.Origin = session.OriginOperator
		f.WalletLoading = true
		out := Render(newTestModel(session.State{Surface: session.SurfaceConfiguringPool, PoolFlow: f}))
		assert.Contains(t, out, "Tunnel configuration")
		assert.Contains(t, out, "Loading wallet")
	})

	t.Run("saving", func(t *testing.T) {
		f := flow
		f.Phase = session.FlowSaving
		f.Draft.PaymentsEnabled = false
		out := Render(newTestModel(session.State{Surface: session.SurfaceConfiguringPool, PoolFlow: f}))
		assert.Contains(t, out, "[ ] Pay for tunnel traffic")
		assert.Contains(t, out, "Saving")
	})
}

func TestRender_ResetConfirm(t *testing.T) {
	m := newTestModel(session.State{})
	m.ConfirmingReset = true
	assert.Contains(t, Render(m), "Detach the node pool")

	// Another surface takes precedence.
	m.State.Surface = session.SurfaceReinitializing
	assert.NotContains(t, Render(m), "Detach the node pool")
}

func TestRender_Notices(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	m := newTestModel(session.State{Notices: []session.Notice{
		{Lane: session.LaneLifecycle, Message: "first", At: at},
		{Lane: session.LaneConfig, Message: "second", At: at},
		{Lane: session.LaneConfig, Message: "third", At: at},
		{Lane: session.LaneNegotiation, Message: "fourth", Retryable: true, At: at},
	}})
	out := Render(m)
	assert.NotContains(t, out, "first")
	assert.Contains(t, out, "config: third")
	assert.Contains(t, out, "negotiation: fourth (retry possible)")
}

func TestRender_StatusBarMessage(t *testing.T) {
	m := newTestModel(session.State{})
	m.StatusBarMessage = "Wallet address copied"
	m.StatusBarMessageType = model.StatusBarSuccess
	assert.Contains(t, Render(m), "Wallet address copied")
}

func TestStyleLogLine(t *testing.T) {
	for _, line := range []string{
		"10:00:00 ERROR [Session] failed",
		"10:00:00 WARN  [Session] slow",
		"10:00:00 DEBUG [MCP] tool",
		"10:00:00 INFO  [App] ok",
		"x",
	} {
		assert.Contains(t, styleLogLine(line), line)
	}
	assert.Contains(t, PrepareLogContent(nil, 40), "No activity yet.")
	assert.Contains(t, PrepareLogContent([]string{"10:00:00 INFO  [App] ok"}, 80), "[App] ok")
}

func TestSafeIcon(t *testing.T) {
	assert.Equal(t, "✔ ", SafeIcon(IconCheck))
	assert.Equal(t, "🔗  ", SafeIcon(IconLink))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab…", Truncate("abcdef", 3))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestLogViewportSize(t *testing.T) {
	w, h := LogViewportSize(model.ModeMain, 100, 20)
	assert.Equal(t, 0, h)
	assert.Greater(t, w, 0)

	_, h = LogViewportSize(model.ModeMain, 100, 60)
	assert.Greater(t, h, 0)

	w, h = LogViewportSize(model.ModeLogOverlay, 100, 40)
	assert.Greater(t, w, 90)
	assert.Greater(t, h, 30)
}
