package session

import (
	"fmt"
	"time"

	"tunnelctl/internal/backend"
	"tunnelctl/internal/reporting"
)

// ProxyStatus is the proxy connectivity state reported by the backend.
type ProxyStatus int

const (
	StatusStopped ProxyStatus = iota
	StatusLoading
	StatusReady
	StatusError
)

func (s ProxyStatus) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "stopped"
	}
}

// Section is one hop of a route.
type Section struct {
	Name      string
	IsExitHop bool
}

// RouteProposal is a route offered by the backend for approval.
// Proposals are never modified after they are received.
type RouteProposal struct {
	ID            string
	Sections      []Section
	PriceInPerMB  string
	PriceOutPerMB string
	ReceivedAt    time.Time
	// PriceWarning is set when a price is not a valid decimal.
	PriceWarning string
}

// HopCount is the number of sections in the route.
func (p RouteProposal) HopCount() int {
	return len(p.Sections)
}

func (p RouteProposal) clone() *RouteProposal {
	c := p
	c.Sections = append([]Section(nil), p.Sections...)
	return &c
}

// TunnelSettings are the persisted tunnel settings.
type TunnelSettings = backend.TunnelSettings

// PoolOffer announces an attached node pool.
type PoolOffer struct {
	PoolPath string
	MaxNodes int
}

// Attached is false for the backend's "pool detached" signal.
func (o PoolOffer) Attached() bool {
	return o.PoolPath != "" && o.MaxNodes > 0
}

// Lane is a logical command channel. At most one command per lane is in flight.
type Lane int

const (
	LaneLifecycle Lane = iota
	LaneNegotiation
	LaneReinit
	LaneConfig
	laneCount

	// laneNone marks read-only queries, which are never lane-locked.
	laneNone Lane = -1
)

func (l Lane) String() string {
	switch l {
	case LaneLifecycle:
		return "lifecycle"
	case LaneNegotiation:
		return "negotiation"
	case LaneReinit:
		return "reinit"
	case LaneConfig:
		return "config"
	default:
		return "backend"
	}
}

// Notice is user-visible failure text.
type Notice struct {
	Lane      Lane
	Message   string
	Retryable bool
	At        time.Time
}

func (n Notice) String() string {
	if n.Retryable {
		return fmt.Sprintf("%s: %s (retry possible)", n.Lane, n.Message)
	}
	return fmt.Sprintf("%s: %s", n.Lane, n.Message)
}

// Surface is the single decision surface currently presented to the operator.
type Surface int

const (
	SurfaceNone Surface = iota
	SurfaceNegotiating
	SurfaceReinitializing
	SurfaceConfiguringPool
)

func (s Surface) String() string {
	switch s {
	case SurfaceNegotiating:
		return "negotiating"
	case SurfaceReinitializing:
		return "reinitializing"
	case SurfaceConfiguringPool:
		return "configuring-pool"
	default:
		return "none"
	}
}

// ProxyView is the lifecycle part of the aggregate state.
type ProxyView struct {
	Status ProxyStatus
	// Detail is "connecting" or "disconnecting" while loading, and the
	// failure text in the error state.
	Detail string
	// Progress is the raw loading text from the backend.
	Progress string
	Locked   bool
	// TunnelAddr and Paid are only populated while ready with the tunnel enabled.
	TunnelAddr string
	Paid       string
	ListenAddr string
}

// NegotiationView is the route negotiation part of the aggregate state.
type NegotiationView struct {
	Phase NegotiationPhase
	// Proposal is the live proposal while awaiting a decision.
	Proposal *RouteProposal
	// Previous is the rerouted proposal while rerouting.
	Previous        *RouteProposal
	RequestedHops   int
	DecisionPending bool
	MaxNodes        int
	Resolved        int
	LastOutcome     string
}

// ReinitView is the reinit confirmation part of the aggregate state.
type ReinitView struct {
	Phase         ReinitPhase
	AnswerPending bool
	LastAnswer    *bool
}

// PoolFlowView is the pool configuration part of the aggregate state.
type PoolFlowView struct {
	Phase         FlowPhase
	Origin        FlowOrigin
	PoolPath      string
	MaxNodes      int
	Draft         TunnelSettings
	WalletAddr    string
	WalletLoading bool
}

// State is an immutable snapshot of everything the coordinator tracks.
type State struct {
	Connected     bool
	Proxy         ProxyView
	TunnelEnabled bool
	Committed     TunnelSettings
	MaxNodes      int
	Negotiation   NegotiationView
	Reinit        ReinitView
	PoolFlow      PoolFlowView
	Surface       Surface
	Notices       []Notice
	Busy          map[Lane]bool
}

// StateEvent carries a new aggregate snapshot.
type StateEvent struct {
	reporting.BaseEvent
	State State
}

// NoticeEvent carries a newly recorded notice.
type NoticeEvent struct {
	reporting.BaseEvent
	Notice Notice
}
