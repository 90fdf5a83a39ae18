package mcpserver

import (
	"time"

	"tunnelctl/internal/session"
)

type proxyStatus struct {
	Status     string `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Progress   string `json:"progress,omitempty"`
	Locked     bool   `json:"locked"`
	ListenAddr string `json:"listenAddr,omitempty"`
	TunnelAddr string `json:"tunnelAddr,omitempty"`
	Paid       string `json:"paid,omitempty"`
}

type sectionInfo struct {
	Name string `json:"name"`
	Exit bool   `json:"exit,omitempty"`
}

type proposalInfo struct {
	ID            string        `json:"id"`
	Hops          int           `json:"hops"`
	Sections      []sectionInfo `json:"sections"`
	PriceInPerMB  string        `json:"priceInPerMB"`
	PriceOutPerMB string        `json:"priceOutPerMB"`
	Warning       string        `json:"warning,omitempty"`
	ReceivedAt    time.Time     `json:"receivedAt"`
}

type negotiationStatus struct {
	Phase           string        `json:"phase"`
	Proposal        *proposalInfo `json:"proposal,omitempty"`
	RequestedHops   int           `json:"requestedHops,omitempty"`
	DecisionPending bool          `json:"decisionPending"`
	MaxHops         int           `json:"maxHops"`
	LastOutcome     string        `json:"lastOutcome,omitempty"`
}

type settingsInfo struct {
	Hops            int    `json:"hops"`
	PaymentsEnabled bool   `json:"paymentsEnabled"`
	PoolPath        string `json:"poolPath,omitempty"`
}

type flowStatus struct {
	Phase      string       `json:"phase"`
	Origin     string       `json:"origin"`
	PoolPath   string       `json:"poolPath,omitempty"`
	MaxHops    int          `json:"maxHops"`
	Draft      settingsInfo `json:"draft"`
	WalletAddr string       `json:"walletAddr,omitempty"`
}

type noticeInfo struct {
	Lane      string    `json:"lane"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	At        time.Time `json:"at"`
}

// statusView is the JSON shape returned by tunnel_status.
type statusView struct {
	Connected     bool              `json:"connected"`
	Surface       string            `json:"surface"`
	Proxy         proxyStatus       `json:"proxy"`
	TunnelEnabled bool              `json:"tunnelEnabled"`
	Committed     settingsInfo      `json:"committed"`
	Negotiation   negotiationStatus `json:"negotiation"`
	ReinitPending bool              `json:"reinitPending"`
	PoolFlow      *flowStatus       `json:"poolFlow,omitempty"`
	Busy          []string          `json:"busy,omitempty"`
	Notices       []noticeInfo      `json:"notices,omitempty"`
}

func newStatusView(s session.State) statusView {
	v := statusView{
		Connected: s.Connected,
		Surface:   s.Surface.String(),
		Proxy: proxyStatus{
			Status:     s.Proxy.Status.String(),
			Detail:     s.Proxy.Detail,
			Progress:   s.Proxy.Progress,
			Locked:     s.Proxy.Locked,
			ListenAddr: s.Proxy.ListenAddr,
			TunnelAddr: s.Proxy.TunnelAddr,
			Paid:       s.Proxy.Paid,
		},
		TunnelEnabled: s.TunnelEnabled,
		Committed:     newSettingsInfo(s.Committed),
		Negotiation: negotiationStatus{
			Phase:           s.Negotiation.Phase.String(),
			RequestedHops:   s.Negotiation.RequestedHops,
			DecisionPending: s.Negotiation.DecisionPending,
			MaxHops:         s.MaxNodes,
			LastOutcome:     s.Negotiation.LastOutcome,
		},
		ReinitPending: s.Reinit.Phase == session.ReinitAwaitingConfirmation,
	}

	if p := s.Negotiation.Proposal; p != nil {
		info := &proposalInfo{
			ID:            p.ID,
			Hops:          p.HopCount(),
			PriceInPerMB:  p.PriceInPerMB,
			PriceOutPerMB: p.PriceOutPerMB,
			Warning:       p.PriceWarning,
			ReceivedAt:    p.ReceivedAt,
		}
		for _, sec := range p.Sections {
			info.Sections = append(info.Sections, sectionInfo{Name: sec.Name, Exit: sec.IsExitHop})
		}
		v.Negotiation.Proposal = info
	}

	if s.PoolFlow.Phase != session.FlowClosed {
		v.PoolFlow = &flowStatus{
			Phase:      s.PoolFlow.Phase.String(),
			Origin:     s.PoolFlow.Origin.String(),
			PoolPath:   s.PoolFlow.PoolPath,
			MaxHops:    s.PoolFlow.MaxNodes,
			Draft:      newSettingsInfo(s.PoolFlow.Draft),
			WalletAddr: s.PoolFlow.WalletAddr,
		}
	}

	for _, lane := range []session.Lane{session.LaneLifecycle, session.LaneNegotiation, session.LaneReinit, session.LaneConfig} {
		if s.Busy[lane] {
			v.Busy = append(v.Busy, lane.String())
		}
	}

	for _, n := range s.Notices {
		v.Notices = append(v.Notices, noticeInfo{
			Lane:      n.Lane.String(),
			Message:   n.Message,
			Retryable: n.Retryable,
			At:        n.At,
		})
	}
	return v
}

func newSettingsInfo(t session.TunnelSettings) settingsInfo {
	return settingsInfo{Hops: t.SectionCount, PaymentsEnabled: t.PaymentsEnabled, PoolPath: t.PoolPath}
}
